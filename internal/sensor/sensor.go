package sensor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// MinPeriod is how often a DHT22 can produce a fresh measurement.
const MinPeriod = 2 * time.Second

type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	At          time.Time `json:"timestamp"`
}

func NaN(at time.Time) Reading {
	return Reading{Temperature: math.NaN(), Humidity: math.NaN(), At: at}
}

func (r Reading) Valid() bool {
	return !math.IsNaN(r.Temperature) && !math.IsNaN(r.Humidity)
}

type Source interface {
	Read() (Reading, error)
}

func ReadWithRetry(ctx context.Context, src Source, attempts int, pause time.Duration) (Reading, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		r, err := src.Read()
		if err == nil && r.Valid() {
			return r, nil
		}
		if err == nil {
			err = fmt.Errorf("reading is not a number")
		}
		lastErr = err
		if attempt < attempts {
			if err := sleep(ctx, pause); err != nil {
				return Reading{}, err
			}
		}
	}
	return Reading{}, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Sampler reads twice and keeps the second value, so a cached measurement
// from an earlier request is never reported as current.
type Sampler struct {
	src Source
	gap time.Duration
	log zerolog.Logger
	now func() time.Time
}

func NewSampler(src Source, gap time.Duration, log zerolog.Logger) *Sampler {
	return &Sampler{src: src, gap: gap, log: log, now: time.Now}
}

// Read never fails: a bad read comes back as a NaN reading.
func (s *Sampler) Read(ctx context.Context) Reading {
	if _, err := s.src.Read(); err != nil {
		s.log.Debug().Err(err).Msg("priming read failed")
	}
	if err := sleep(ctx, s.gap); err != nil {
		return NaN(s.now())
	}

	r, err := s.src.Read()
	if err != nil {
		s.log.Warn().Err(err).Msg("sensor read failed")
		return NaN(s.now())
	}
	if r.At.IsZero() {
		r.At = s.now()
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
