package controller

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type ACState int

const (
	Off ACState = iota
	On
)

func (s ACState) String() string {
	if s == On {
		return "on"
	}
	return "off"
}

func (s ACState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Action int

const (
	ActionNone Action = iota
	ActionHold
	ActionTurnOn
	ActionTurnOff
	ActionAlreadyOn
	ActionAlreadyOff
	ActionForceOn
	ActionForceOff
	ActionOnSuppressed
)

var actionNames = map[Action]string{
	ActionNone:         "none",
	ActionHold:         "hold",
	ActionTurnOn:       "turn_on",
	ActionTurnOff:      "turn_off",
	ActionAlreadyOn:    "already_on",
	ActionAlreadyOff:   "already_off",
	ActionForceOn:      "force_on",
	ActionForceOff:     "force_off",
	ActionOnSuppressed: "on_suppressed",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

type Outcome int

const (
	OutcomeDecided Outcome = iota
	OutcomeConfigError
	OutcomeSkipped
	OutcomeOutsideWorkHours
	OutcomeSensorFault
)

var outcomeNames = map[Outcome]string{
	OutcomeDecided:          "decided",
	OutcomeConfigError:      "config_error",
	OutcomeSkipped:          "skipped",
	OutcomeOutsideWorkHours: "outside_work_hours",
	OutcomeSensorFault:      "sensor_fault",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Report is everything one cycle observed and did. Temperature, Humidity and
// Score are only meaningful when HasReading is set.
type Report struct {
	RunID        string        `json:"run_id"`
	Cycle        int64         `json:"cycle"`
	Timestamp    time.Time     `json:"timestamp"`
	Hour         int           `json:"hour"`
	Outcome      Outcome       `json:"outcome"`
	HasReading   bool          `json:"has_reading"`
	Temperature  float64       `json:"temperature"`
	Humidity     float64       `json:"humidity"`
	Score        float64       `json:"score"`
	Daytime      bool          `json:"daytime"`
	OnThreshold  float64       `json:"on_threshold"`
	OffThreshold float64       `json:"off_threshold"`
	Action       Action        `json:"action"`
	State        ACState       `json:"ac_state"`
	Warnings     int           `json:"warnings"`
	Pressed      bool          `json:"pressed"`
	Note         string        `json:"note,omitempty"`
	Sleep        time.Duration `json:"sleep_ns"`
	Lines        []string      `json:"lines"`
}

func (r *Report) addf(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Message is the human readable, multi-line form sent to chat.
func (r Report) Message() string {
	return strings.Join(r.Lines, "\n")
}

// Summary is a one-line description of what the cycle did.
func (r Report) Summary() string {
	if r.Outcome != OutcomeDecided {
		return r.Outcome.String()
	}
	if r.Note != "" {
		return r.Action.String() + " (" + r.Note + ")"
	}
	return r.Action.String()
}

type Snapshot struct {
	RunID      string    `json:"run_id"`
	State      ACState   `json:"ac_state"`
	Warnings   int       `json:"warnings"`
	LastOnAt   time.Time `json:"last_on_at"`
	LastOffAt  time.Time `json:"last_off_at"`
	StartedAt  time.Time `json:"started_at"`
	Cycles     int64     `json:"cycle_count"`
	Presses    int64     `json:"press_count"`
	LastReport *Report   `json:"last_report,omitempty"`
}

type history struct {
	mu      sync.RWMutex
	records []Report
	limit   int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = 1000
	}
	return &history{limit: limit, records: make([]Report, 0)}
}

func (h *history) add(r Report) {
	h.mu.Lock()
	h.records = append(h.records, r)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
	h.mu.Unlock()
}

func (h *history) last(limit int) []Report {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}
	result := make([]Report, limit)
	copy(result, h.records[len(h.records)-limit:])
	return result
}

func (h *history) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
