package sensor

import (
	"sync"
	"time"
)

// Mock drifts temperature between 24 and 32 °C and cycles humidity, enough
// to walk the controller across both thresholds without hardware.
type Mock struct {
	mu       sync.Mutex
	temp     float64
	humidity float64
	step     float64
}

func NewMock() *Mock {
	return &Mock{temp: 26, humidity: 55, step: 0.2}
}

func (m *Mock) Read() (Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.temp += m.step
	if m.temp > 32 || m.temp < 24 {
		m.step = -m.step
	}
	m.humidity += 0.5
	if m.humidity > 85 {
		m.humidity = 45
	}
	return Reading{Temperature: m.temp, Humidity: m.humidity, At: time.Now()}, nil
}

func (m *Mock) String() string {
	return "mock"
}
