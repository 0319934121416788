package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/controller"
)

type Sink interface {
	Name() string
	Notify(ctx context.Context, r controller.Report) error
}

// Multi delivers a report to every sink in order. A failing sink is logged
// and does not stop the others; nothing is retried.
type Multi struct {
	sinks []Sink
	log   zerolog.Logger
}

func NewMulti(log zerolog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log}
}

func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Notify(ctx context.Context, r controller.Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, r); err != nil {
			m.log.Warn().Err(err).Str("sink", s.Name()).Int64("cycle", r.Cycle).Msg("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
