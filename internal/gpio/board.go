package gpio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/actuator"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const servoFrequency = 50 * physic.Hertz

type Pins struct {
	DHT    int
	Servo  int
	Buzzer int
}

// Board owns the periph host and the three lines the bot uses.
// A zero BCM number leaves that line unclaimed.
type Board struct {
	pinDHT    gpio.PinIO
	pinServo  gpio.PinIO
	pinBuzzer gpio.PinIO
	log       zerolog.Logger
}

func byBCM(n int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", n)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %s", name)
	}
	return p, nil
}

func NewBoard(pins Pins, log zerolog.Logger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}

	b := &Board{log: log}
	var err error
	if pins.DHT > 0 {
		if b.pinDHT, err = byBCM(pins.DHT); err != nil {
			return nil, fmt.Errorf("dht22 pin: %w", err)
		}
	}
	if pins.Servo > 0 {
		if b.pinServo, err = byBCM(pins.Servo); err != nil {
			return nil, fmt.Errorf("servo pin: %w", err)
		}
	}
	if pins.Buzzer > 0 {
		if b.pinBuzzer, err = byBCM(pins.Buzzer); err != nil {
			return nil, fmt.Errorf("buzzer pin: %w", err)
		}
		if err := b.pinBuzzer.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("buzzer pin: %w", err)
		}
	}

	log.Info().
		Str("dht22", nameOf(b.pinDHT)).
		Str("servo", nameOf(b.pinServo)).
		Str("buzzer", nameOf(b.pinBuzzer)).
		Msg("gpio initialised")
	return b, nil
}

func nameOf(p gpio.PinIO) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}

func (b *Board) DHTPin() gpio.PinIO {
	return b.pinDHT
}

// Servo returns a soft-PWM servo on the servo line, or nil when none is wired.
func (b *Board) Servo() *Servo {
	if b.pinServo == nil {
		return nil
	}
	return &Servo{pin: b.pinServo}
}

func (b *Board) Buzzer() *Buzzer {
	if b.pinBuzzer == nil {
		return nil
	}
	return &Buzzer{pin: b.pinBuzzer}
}

func (b *Board) Close() error {
	b.log.Info().Msg("releasing gpio")
	if b.pinServo != nil {
		if err := b.pinServo.Halt(); err != nil {
			b.log.Warn().Err(err).Msg("halt servo pwm")
		}
	}
	if b.pinBuzzer != nil {
		b.pinBuzzer.Out(gpio.Low)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

type Servo struct {
	pin gpio.PinOut
}

func (s *Servo) Move(angle int) error {
	pulse := actuator.PulseWidth(angle)
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(pulse) / int64(actuator.Period))
	return s.pin.PWM(duty, servoFrequency)
}

type Buzzer struct {
	pin gpio.PinOut
}

func (b *Buzzer) On() error {
	return b.pin.Out(gpio.High)
}

func (b *Buzzer) Off() error {
	return b.pin.Out(gpio.Low)
}
