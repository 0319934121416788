package actuator

import (
	"errors"
	"fmt"
	"strconv"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// gobot's raspi adaptor addresses pins by their 40-pin header position.
var bcmToHeader = map[int]int{
	2: 3, 3: 5, 4: 7, 17: 11, 27: 13, 22: 15, 10: 19, 9: 21, 11: 23,
	5: 29, 6: 31, 13: 33, 19: 35, 26: 37, 14: 8, 15: 10, 18: 12, 23: 16,
	24: 18, 25: 22, 8: 24, 7: 26, 12: 32, 16: 36, 20: 38, 21: 40,
}

func HeaderPin(bcm int) (string, error) {
	header, ok := bcmToHeader[bcm]
	if !ok {
		return "", fmt.Errorf("GPIO%d is not on the 40-pin header", bcm)
	}
	return strconv.Itoa(header), nil
}

// Gobot drives the servo through pi-blaster and the buzzer through sysfs/cdev.
type Gobot struct {
	adaptor *raspi.Adaptor
	servo   *gpio.ServoDriver
	buzzer  *gpio.BuzzerDriver
}

func NewGobot(servoBCM, buzzerBCM int) (*Gobot, error) {
	servoPin, err := HeaderPin(servoBCM)
	if err != nil {
		return nil, fmt.Errorf("servo pin: %w", err)
	}

	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	g := &Gobot{adaptor: adaptor}
	g.servo = gpio.NewServoDriver(adaptor, servoPin)
	if err := g.servo.Start(); err != nil {
		return nil, releaseOnError(fmt.Errorf("start servo driver: %w", err), adaptor.Finalize)
	}

	if buzzerBCM > 0 {
		buzzerPin, err := HeaderPin(buzzerBCM)
		if err != nil {
			return nil, releaseOnError(fmt.Errorf("buzzer pin: %w", err), g.Close)
		}
		g.buzzer = gpio.NewBuzzerDriver(adaptor, buzzerPin)
		if err := g.buzzer.Start(); err != nil {
			return nil, releaseOnError(fmt.Errorf("start buzzer driver: %w", err), g.Close)
		}
	}
	return g, nil
}

// releaseOnError runs release after a failed setup step and reports both errors.
func releaseOnError(err error, release func() error) error {
	if rerr := release(); rerr != nil {
		return errors.Join(err, fmt.Errorf("release: %w", rerr))
	}
	return err
}

func (g *Gobot) Move(angle int) error {
	return g.servo.Move(uint8(ClampAngle(angle)))
}

func (g *Gobot) On() error {
	if g.buzzer == nil {
		return nil
	}
	return g.buzzer.On()
}

func (g *Gobot) Off() error {
	if g.buzzer == nil {
		return nil
	}
	return g.buzzer.Off()
}

func (g *Gobot) Close() error {
	var errs []error
	if g.buzzer != nil {
		errs = append(errs, g.buzzer.Halt())
	}
	errs = append(errs, g.servo.Halt(), g.adaptor.Finalize())
	return errors.Join(errs...)
}
