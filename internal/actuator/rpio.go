package actuator

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

const (
	pwmClock     = 1_000_000 // 1 µs per PWM tick
	cycleTicks   = uint32(Period / time.Microsecond)
	pwmChannel0a = 12
	pwmChannel0b = 18
	pwmChannel1a = 13
	pwmChannel1b = 19
)

// RPIO drives the servo from the SoC's hardware PWM through /dev/gpiomem.
type RPIO struct {
	servo  rpio.Pin
	buzzer rpio.Pin
	beeper bool
}

func NewRPIO(servoBCM, buzzerBCM int) (*RPIO, error) {
	switch servoBCM {
	case pwmChannel0a, pwmChannel0b, pwmChannel1a, pwmChannel1b:
	default:
		return nil, fmt.Errorf("GPIO%d has no hardware PWM", servoBCM)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	r := &RPIO{servo: rpio.Pin(servoBCM)}
	r.servo.Mode(rpio.Pwm)
	r.servo.Freq(pwmClock)
	rpio.StartPwm()

	if buzzerBCM > 0 {
		r.buzzer = rpio.Pin(buzzerBCM)
		r.buzzer.Output()
		r.buzzer.Low()
		r.beeper = true
	}
	return r, nil
}

func (r *RPIO) Move(angle int) error {
	r.servo.DutyCycle(uint32(PulseWidth(angle).Microseconds()), cycleTicks)
	return nil
}

func (r *RPIO) On() error {
	if r.beeper {
		r.buzzer.High()
	}
	return nil
}

func (r *RPIO) Off() error {
	if r.beeper {
		r.buzzer.Low()
	}
	return nil
}

func (r *RPIO) Close() error {
	rpio.StopPwm()
	if r.beeper {
		r.buzzer.Low()
	}
	return rpio.Close()
}
