package actuator

import "sync"

// Mock records servo moves and buzzer toggles.
type Mock struct {
	mu     sync.Mutex
	angles []int
	beeps  int
	on     bool
	err    error
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Mock) Move(angle int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.angles = append(m.angles, ClampAngle(angle))
	return nil
}

func (m *Mock) On() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.on {
		m.beeps++
	}
	m.on = true
	return nil
}

func (m *Mock) Off() error {
	m.mu.Lock()
	m.on = false
	m.mu.Unlock()
	return nil
}

func (m *Mock) Angles() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.angles))
	copy(out, m.angles)
	return out
}

func (m *Mock) Beeps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beeps
}

func (m *Mock) Close() error {
	return nil
}
