package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Servo interface {
	Move(angle int) error
}

type Buzzer interface {
	On() error
	Off() error
}

const (
	MinPulse = 500 * time.Microsecond
	MaxPulse = 2500 * time.Microsecond
	Period   = 20 * time.Millisecond
)

func ClampAngle(angle int) int {
	if angle < 0 {
		return 0
	}
	if angle > 180 {
		return 180
	}
	return angle
}

// PulseWidth maps 0..180° onto a 500..2500 µs servo pulse.
func PulseWidth(angle int) time.Duration {
	return MinPulse + time.Duration(ClampAngle(angle))*(MaxPulse-MinPulse)/180
}

type Geometry struct {
	HandsDown int           `json:"hands_down_angle"`
	HandsUp   int           `json:"hands_up_angle"`
	Delay     time.Duration `json:"delay"`
}

var DefaultGeometry = Geometry{HandsDown: 90, HandsUp: 180, Delay: 500 * time.Millisecond}

func (g Geometry) withDefaults() Geometry {
	if g.HandsDown == 0 && g.HandsUp == 0 {
		g.HandsDown = DefaultGeometry.HandsDown
		g.HandsUp = DefaultGeometry.HandsUp
	}
	if g.Delay <= 0 {
		g.Delay = DefaultGeometry.Delay
	}
	return g
}

// Presser pushes the AC power button with the servo arm. It has no
// feedback: a press toggles whatever state the unit is really in.
type Presser struct {
	servo   Servo
	enabled bool
	log     zerolog.Logger
}

func NewPresser(servo Servo, enabled bool, log zerolog.Logger) *Presser {
	return &Presser{servo: servo, enabled: enabled && servo != nil, log: log}
}

func (p *Presser) Enabled() bool {
	return p.enabled
}

func (p *Presser) Press(ctx context.Context, g Geometry) error {
	g = g.withDefaults()
	if !p.enabled {
		p.log.Info().Int("down", g.HandsDown).Int("up", g.HandsUp).Msg("servo disabled, skipping button press")
		return nil
	}

	p.log.Info().Int("down", g.HandsDown).Int("up", g.HandsUp).Dur("hold", g.Delay).Msg("pressing power button")
	if err := p.servo.Move(g.HandsDown); err != nil {
		return fmt.Errorf("hands down: %w", err)
	}
	waitErr := sleep(ctx, g.Delay)
	if err := p.servo.Move(g.HandsUp); err != nil {
		return fmt.Errorf("hands up: %w", err)
	}
	return waitErr
}

// Park lifts the arm clear of the button after boot.
func (p *Presser) Park(ctx context.Context, handsUp int) error {
	if !p.enabled {
		return nil
	}
	if handsUp == 0 {
		handsUp = DefaultGeometry.HandsUp
	}
	if err := p.servo.Move(90); err != nil {
		return fmt.Errorf("park: %w", err)
	}
	if err := sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	if err := p.servo.Move(handsUp); err != nil {
		return fmt.Errorf("park: %w", err)
	}
	return nil
}

const beepPulse = 100 * time.Millisecond

type Beeper struct {
	buzzer Buzzer
}

func NewBeeper(b Buzzer) *Beeper {
	return &Beeper{buzzer: b}
}

func (b *Beeper) Beep(ctx context.Context) error {
	if b.buzzer == nil {
		return nil
	}
	if err := b.buzzer.On(); err != nil {
		return fmt.Errorf("buzzer on: %w", err)
	}
	waitErr := sleep(ctx, beepPulse)
	if err := b.buzzer.Off(); err != nil {
		return fmt.Errorf("buzzer off: %w", err)
	}
	if waitErr != nil {
		return waitErr
	}
	return sleep(ctx, beepPulse)
}

func (b *Beeper) BeepTwice(ctx context.Context) error {
	if err := b.Beep(ctx); err != nil {
		return err
	}
	if err := sleep(ctx, 2*beepPulse); err != nil {
		return err
	}
	return b.Beep(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
