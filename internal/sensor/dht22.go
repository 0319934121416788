package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

var ErrChecksum = errors.New("dht22: checksum mismatch")

type DHT22 struct {
	mu  sync.Mutex
	pin gpio.PinIO
}

func NewDHT22(pin gpio.PinIO) *DHT22 {
	return &DHT22{pin: pin}
}

func (d *DHT22) String() string {
	return fmt.Sprintf("DHT22(%s)", d.pin)
}

const (
	startSignal  = 18 * time.Millisecond
	releaseDelay = 40 * time.Microsecond
	edgeTimeout  = 100 * time.Microsecond
	// a high pulse longer than this encodes a 1 bit (26-28µs is 0, 70µs is 1)
	oneThreshold = 50 * time.Microsecond
)

// pause busy-waits below a millisecond, where the scheduler is too coarse.
func pause(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	for start := time.Now(); time.Since(start) < d; {
	}
}

// awaitLevel spins until pin reads level and returns how long that took.
func awaitLevel(pin gpio.PinIO, level gpio.Level, timeout time.Duration) (time.Duration, bool) {
	start := time.Now()
	for pin.Read() != level {
		if time.Since(start) >= timeout {
			return time.Since(start), false
		}
	}
	return time.Since(start), true
}

func (d *DHT22) wake() error {
	if err := d.pin.Out(gpio.Low); err != nil {
		return err
	}
	pause(startSignal)
	if err := d.pin.Out(gpio.High); err != nil {
		return err
	}
	pause(releaseDelay)
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

func (d *DHT22) readBit() (byte, error) {
	if _, ok := awaitLevel(d.pin, gpio.Low, edgeTimeout); !ok {
		return 0, fmt.Errorf("timeout waiting for bit start")
	}
	if _, ok := awaitLevel(d.pin, gpio.High, edgeTimeout); !ok {
		return 0, fmt.Errorf("timeout waiting for bit high")
	}
	high, _ := awaitLevel(d.pin, gpio.Low, edgeTimeout)
	if high > oneThreshold {
		return 1, nil
	}
	return 0, nil
}

func (d *DHT22) readFrame() ([]byte, error) {
	frame := make([]byte, 5)
	if _, ok := awaitLevel(d.pin, gpio.Low, edgeTimeout); !ok {
		return nil, fmt.Errorf("no response from sensor (low)")
	}
	if _, ok := awaitLevel(d.pin, gpio.High, edgeTimeout); !ok {
		return nil, fmt.Errorf("no response from sensor (high)")
	}
	for i := 0; i < 40; i++ {
		bit, err := d.readBit()
		if err != nil {
			return nil, fmt.Errorf("bit %d: %w", i, err)
		}
		frame[i/8] |= bit << (7 - i%8)
	}
	return frame, nil
}

func checksumOK(frame []byte) bool {
	if len(frame) != 5 {
		return false
	}
	sum := uint16(frame[0]) + uint16(frame[1]) + uint16(frame[2]) + uint16(frame[3])
	return byte(sum) == frame[4]
}

// decodeFrame converts the 40-bit frame: humidity and temperature are both
// big-endian tenths, the temperature's top bit carrying the sign.
func decodeFrame(frame []byte) (Reading, error) {
	if len(frame) != 5 {
		return Reading{}, fmt.Errorf("invalid frame length: %d", len(frame))
	}
	if !checksumOK(frame) {
		return Reading{}, ErrChecksum
	}

	humidity := float64(uint16(frame[0])<<8|uint16(frame[1])) / 10
	temperature := float64(uint16(frame[2]&0x7F)<<8|uint16(frame[3])) / 10
	if frame[2]&0x80 != 0 {
		temperature = -temperature
	}

	if humidity < 0 || humidity > 100 {
		return Reading{}, fmt.Errorf("humidity out of range: %.1f", humidity)
	}
	if temperature < -40 || temperature > 80 {
		return Reading{}, fmt.Errorf("temperature out of range: %.1f", temperature)
	}
	return Reading{Temperature: temperature, Humidity: humidity, At: time.Now()}, nil
}

func (d *DHT22) Read() (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.wake(); err != nil {
		return Reading{}, fmt.Errorf("start signal failed: %w", err)
	}
	frame, err := d.readFrame()
	if err != nil {
		return Reading{}, fmt.Errorf("read frame failed: %w", err)
	}
	return decodeFrame(frame)
}
