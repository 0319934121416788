package controller

type Input struct {
	Score         float64
	OnThreshold   float64
	OffThreshold  float64
	State         ACState
	Warnings      int
	MaxWarnings   int
	TurnOnEnabled bool
}

type Decision struct {
	Action   Action
	State    ACState
	Warnings int
}

// Presses reports whether the decision calls for a button press.
// Forced re-presses are included; the caller decides whether they are physical.
func (d Decision) Presses() bool {
	switch d.Action {
	case ActionTurnOn, ActionTurnOff, ActionForceOn, ActionForceOff:
		return true
	}
	return false
}

func (d Decision) Forced() bool {
	return d.Action == ActionForceOn || d.Action == ActionForceOff
}

// Decide is one hysteresis step. Scores equal to a threshold hold.
func Decide(in Input) Decision {
	switch {
	case in.Score > in.OnThreshold:
		if !in.TurnOnEnabled {
			return Decision{Action: ActionOnSuppressed, State: in.State, Warnings: in.Warnings}
		}
		return step(in, On, ActionTurnOn, ActionAlreadyOn, ActionForceOn)
	case in.Score < in.OffThreshold:
		return step(in, Off, ActionTurnOff, ActionAlreadyOff, ActionForceOff)
	default:
		return Decision{Action: ActionHold, State: in.State, Warnings: in.Warnings}
	}
}

func step(in Input, want ACState, turn, already, force Action) Decision {
	if in.State != want {
		return Decision{Action: turn, State: want}
	}
	warnings := in.Warnings + 1
	if warnings >= in.MaxWarnings {
		return Decision{Action: force, State: want}
	}
	return Decision{Action: already, State: want, Warnings: warnings}
}
