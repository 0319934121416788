package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/actuator"
	"github.com/undeadpelmen/acbot/internal/comfort"
	"github.com/undeadpelmen/acbot/internal/sensor"
	"github.com/undeadpelmen/acbot/internal/settings"
)

type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

type Sensor interface {
	Read(ctx context.Context) sensor.Reading
}

type Presser interface {
	Press(ctx context.Context, g actuator.Geometry) error
}

type Notifier interface {
	Notify(ctx context.Context, r Report) error
}

type Options struct {
	RunID         string
	Location      *time.Location
	FallbackSleep time.Duration
	HistoryLimit  int
	Now           func() time.Time
}

// Controller owns the AC state machine. Only Cycle mutates it; the
// accessors may be called from any goroutine.
type Controller struct {
	settings SettingsSource
	sensor   Sensor
	presser  Presser
	notifier Notifier
	log      zerolog.Logger

	runID    string
	loc      *time.Location
	fallback time.Duration
	now      func() time.Time
	history  *history

	mu           sync.RWMutex
	state        ACState
	warnings     int
	lastOnAt     time.Time
	lastOffAt    time.Time
	startedAt    time.Time
	cycles       int64
	presses      int64
	last         *Report
	lastSettings *settings.Settings
}

func New(src SettingsSource, sn Sensor, p Presser, n Notifier, log zerolog.Logger, opts Options) *Controller {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.FallbackSleep <= 0 {
		opts.FallbackSleep = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		settings:  src,
		sensor:    sn,
		presser:   p,
		notifier:  n,
		log:       log.With().Str("run_id", opts.RunID).Logger(),
		runID:     opts.RunID,
		loc:       opts.Location,
		fallback:  opts.FallbackSleep,
		now:       opts.Now,
		history:   newHistory(opts.HistoryLimit),
		state:     Off,
		startedAt: opts.Now(),
	}
}

func (c *Controller) RunID() string {
	return c.runID
}

// Cycle runs one fetch, read, decide, actuate and report pass.
func (c *Controller) Cycle(ctx context.Context) Report {
	now := c.now().In(c.loc)

	c.mu.Lock()
	c.cycles++
	r := Report{
		RunID:     c.runID,
		Cycle:     c.cycles,
		Timestamp: now,
		Hour:      now.Hour(),
		State:     c.state,
		Warnings:  c.warnings,
		Sleep:     c.fallback,
	}
	c.mu.Unlock()

	r.addf("🕐 %s", now.Format("02 Jan 15:04"))

	s, err := c.settings.Load(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("load settings")
		r.Outcome = OutcomeConfigError
		r.addf("🚨 Unable to load configuration. Please check the connection. (%v)", err)
		return c.finish(ctx, r)
	}
	c.mu.Lock()
	first := c.lastSettings == nil
	c.lastSettings = &s
	c.mu.Unlock()
	r.Sleep = s.SleepDuration(c.fallback)
	if first {
		r.addf("⚙️ %s", forcePolicy(s))
	}

	if s.ShouldSkip {
		r.Outcome = OutcomeSkipped
		r.addf("⏭️ System is set to skip this check")
		return c.finish(ctx, r)
	}
	if s.OutsideWorkHours(r.Hour) {
		r.Outcome = OutcomeOutsideWorkHours
		r.addf("🌙 Outside work hours (%02d:00 to %02d:00), not checking", s.WorkHourStart, s.WorkHourEnd)
		return c.finish(ctx, r)
	}

	reading := c.sensor.Read(ctx)
	if !reading.Valid() {
		c.log.Warn().Msg("sensor returned no reading")
		r.Outcome = OutcomeSensorFault
		r.addf("🚨 Failed to read from DHT sensor")
		return c.finish(ctx, r)
	}

	r.Outcome = OutcomeDecided
	r.HasReading = true
	r.Temperature = reading.Temperature
	r.Humidity = reading.Humidity
	r.Score = comfort.Score(reading.Temperature, reading.Humidity, s.Comfort())
	r.Daytime = s.Daytime(r.Hour)
	r.OnThreshold, r.OffThreshold = s.Thresholds(r.Hour)
	if r.OnThreshold <= r.OffThreshold {
		c.log.Warn().
			Float64("on", r.OnThreshold).
			Float64("off", r.OffThreshold).
			Msg("on threshold is not above off threshold")
	}

	period := "Night"
	if r.Daytime {
		period = "Day"
	}
	r.addf("🌡️ %.1f°C  💧 %.1f%%  📊 Score %.2f", r.Temperature, r.Humidity, r.Score)
	r.addf("🎯 %s thresholds: ON above %.2f, OFF below %.2f", period, r.OnThreshold, r.OffThreshold)

	c.mu.RLock()
	in := Input{
		Score:         r.Score,
		OnThreshold:   r.OnThreshold,
		OffThreshold:  r.OffThreshold,
		State:         c.state,
		Warnings:      c.warnings,
		MaxWarnings:   s.MaxWarningCount,
		TurnOnEnabled: s.TurnOnEnabled(),
	}
	lastOn, lastOff := c.lastOnAt, c.lastOffAt
	c.mu.RUnlock()

	d := Decide(in)
	r.Action = d.Action
	r.State = d.State
	r.Warnings = d.Warnings

	c.describe(&r, d, s, now, lastOn, lastOff)

	if d.Presses() && (!d.Forced() || s.ForceMode) {
		g := actuator.Geometry{HandsDown: s.HandsDownAngle, HandsUp: s.HandsUpAngle, Delay: s.UpDownDelay()}
		if err := c.presser.Press(ctx, g); err != nil {
			c.log.Error().Err(err).Stringer("action", d.Action).Msg("press power button")
			r.addf("⚠️ Servo error: %v", err)
		} else {
			r.Pressed = true
		}
	}

	c.mu.Lock()
	c.state = d.State
	c.warnings = d.Warnings
	switch d.Action {
	case ActionTurnOn, ActionForceOn:
		c.lastOnAt = now
	case ActionTurnOff, ActionForceOff:
		c.lastOffAt = now
	}
	if r.Pressed {
		c.presses++
	}
	c.mu.Unlock()

	return c.finish(ctx, r)
}

func (c *Controller) describe(r *Report, d Decision, s settings.Settings, now, lastOn, lastOff time.Time) {
	switch d.Action {
	case ActionTurnOn:
		r.addf("❄️ Turning AC ON")
		if !lastOff.IsZero() {
			r.Note = "AC was off for " + humanDuration(now.Sub(lastOff))
		}
	case ActionTurnOff:
		r.addf("🛑 Turning AC OFF")
		if !lastOn.IsZero() {
			r.Note = "AC was on for " + humanDuration(now.Sub(lastOn))
		}
	case ActionAlreadyOn:
		r.addf("⚠️ AC should already be ON but the score is still high (%d/%d)", d.Warnings, s.MaxWarningCount)
	case ActionAlreadyOff:
		r.addf("⚠️ AC should already be OFF but the score is still low (%d/%d)", d.Warnings, s.MaxWarningCount)
	case ActionForceOn, ActionForceOff:
		verb := "ON"
		if d.Action == ActionForceOff {
			verb = "OFF"
		}
		if s.ForceMode {
			r.addf("🔁 Still not %s after %d checks, pressing again", verb, s.MaxWarningCount)
		} else {
			r.addf("🔁 Still not %s after %d checks (force mode off, not pressing)", verb, s.MaxWarningCount)
		}
	case ActionOnSuppressed:
		r.addf("🔒 Score is above ON but turning on is disabled (mode %q)", s.Mode)
	case ActionHold:
		r.addf("✅ Comfortable: %.2f below ON, %.2f above OFF", r.OnThreshold-r.Score, r.Score-r.OffThreshold)
	}
	if r.Note != "" {
		r.addf("⏱️ %s", r.Note)
	}
}

func forcePolicy(s settings.Settings) string {
	if s.ForceMode {
		return fmt.Sprintf("Force mode on: the button is pressed again after %d unchanged checks", s.MaxWarningCount)
	}
	return fmt.Sprintf("Force mode off: after %d unchanged checks the counter resets without pressing", s.MaxWarningCount)
}

func (c *Controller) finish(ctx context.Context, r Report) Report {
	r.addf("💤 Next check in %s", humanDuration(r.Sleep))

	c.mu.Lock()
	last := r
	c.last = &last
	c.mu.Unlock()
	c.history.add(r)

	ev := c.log.Info().
		Int64("cycle", r.Cycle).
		Stringer("outcome", r.Outcome).
		Stringer("ac_state", r.State).
		Int("warnings", r.Warnings).
		Dur("sleep", r.Sleep)
	if r.HasReading {
		ev = ev.Float64("temperature", r.Temperature).
			Float64("humidity", r.Humidity).
			Float64("score", r.Score).
			Stringer("action", r.Action).
			Bool("pressed", r.Pressed)
	}
	ev.Msg("cycle complete")

	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, r); err != nil {
			c.log.Warn().Err(err).Msg("notify")
		}
	}
	return r
}

// Run loops until ctx is cancelled, sleeping between cycles for the interval
// the last settings asked for.
func (c *Controller) Run(ctx context.Context) {
	c.log.Info().Msg("control loop started")

	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("control loop stopped")
			return
		}

		r := c.Cycle(ctx)

		select {
		case <-ctx.Done():
			c.log.Info().Msg("control loop stopped")
			return
		case <-time.After(r.Sleep):
		}
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		RunID:     c.runID,
		State:     c.state,
		Warnings:  c.warnings,
		LastOnAt:  c.lastOnAt,
		LastOffAt: c.lastOffAt,
		StartedAt: c.startedAt,
		Cycles:    c.cycles,
		Presses:   c.presses,
	}
	if c.last != nil {
		last := *c.last
		snap.LastReport = &last
	}
	return snap
}

// Settings returns the settings decoded by the most recent successful load.
func (c *Controller) Settings() (settings.Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastSettings == nil {
		return settings.Settings{}, false
	}
	return *c.lastSettings, true
}

func (c *Controller) History(limit int) []Report {
	return c.history.last(limit)
}

func (c *Controller) HistoryCount() int {
	return c.history.len()
}

func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
