package controller

import "testing"

func TestDecide(t *testing.T) {
	base := Input{OnThreshold: 15, OffThreshold: 10, MaxWarnings: 3, TurnOnEnabled: true}

	with := func(mut func(*Input)) Input {
		in := base
		mut(&in)
		return in
	}

	cases := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "high score turns on",
			in:   with(func(in *Input) { in.Score = 20; in.Warnings = 2 }),
			want: Decision{Action: ActionTurnOn, State: On},
		},
		{
			name: "high score while on warns",
			in:   with(func(in *Input) { in.Score = 20; in.State = On }),
			want: Decision{Action: ActionAlreadyOn, State: On, Warnings: 1},
		},
		{
			name: "warning limit forces re-press",
			in:   with(func(in *Input) { in.Score = 20; in.State = On; in.Warnings = 2 }),
			want: Decision{Action: ActionForceOn, State: On},
		},
		{
			name: "zero limit forces every repeat",
			in:   with(func(in *Input) { in.Score = 20; in.State = On; in.MaxWarnings = 0 }),
			want: Decision{Action: ActionForceOn, State: On},
		},
		{
			name: "negative limit forces every repeat",
			in:   with(func(in *Input) { in.Score = 20; in.State = On; in.MaxWarnings = -1 }),
			want: Decision{Action: ActionForceOn, State: On},
		},
		{
			name: "limit of one forces immediately",
			in:   with(func(in *Input) { in.Score = 20; in.State = On; in.MaxWarnings = 1 }),
			want: Decision{Action: ActionForceOn, State: On},
		},
		{
			name: "low score turns off",
			in:   with(func(in *Input) { in.Score = 5; in.State = On; in.Warnings = 1 }),
			want: Decision{Action: ActionTurnOff, State: Off},
		},
		{
			name: "low score while off warns",
			in:   with(func(in *Input) { in.Score = 5 }),
			want: Decision{Action: ActionAlreadyOff, State: Off, Warnings: 1},
		},
		{
			name: "low score forces off",
			in:   with(func(in *Input) { in.Score = 5; in.Warnings = 2 }),
			want: Decision{Action: ActionForceOff, State: Off},
		},
		{
			name: "between thresholds holds",
			in:   with(func(in *Input) { in.Score = 12; in.State = On; in.Warnings = 2 }),
			want: Decision{Action: ActionHold, State: On, Warnings: 2},
		},
		{
			name: "equal to on threshold holds",
			in:   with(func(in *Input) { in.Score = 15 }),
			want: Decision{Action: ActionHold, State: Off},
		},
		{
			name: "equal to off threshold holds",
			in:   with(func(in *Input) { in.Score = 10; in.State = On }),
			want: Decision{Action: ActionHold, State: On},
		},
		{
			name: "turning on disabled",
			in:   with(func(in *Input) { in.Score = 20; in.TurnOnEnabled = false; in.Warnings = 1 }),
			want: Decision{Action: ActionOnSuppressed, State: Off, Warnings: 1},
		},
		{
			name: "turning on disabled still turns off",
			in:   with(func(in *Input) { in.Score = 5; in.State = On; in.TurnOnEnabled = false }),
			want: Decision{Action: ActionTurnOff, State: Off},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.in); got != tc.want {
				t.Errorf("Decide(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecideWarningsStayWithinLimit(t *testing.T) {
	for _, limit := range []int{-1, 0, 1, 3, 5} {
		in := Input{State: On, Score: 20, OnThreshold: 15, OffThreshold: 10, MaxWarnings: limit, TurnOnEnabled: true}
		forced := 0
		for i := 0; i < 20; i++ {
			d := Decide(in)
			if d.Warnings > 0 && d.Warnings >= limit {
				t.Fatalf("limit %d: warnings reached %d without a forced re-press", limit, d.Warnings)
			}
			if d.Forced() {
				forced++
			}
			in.State, in.Warnings = d.State, d.Warnings
		}
		if forced == 0 {
			t.Errorf("limit %d: never forced a re-press", limit)
		}
	}
}

func TestDecisionPresses(t *testing.T) {
	pressing := map[Action]bool{
		ActionTurnOn:       true,
		ActionTurnOff:      true,
		ActionForceOn:      true,
		ActionForceOff:     true,
		ActionHold:         false,
		ActionAlreadyOn:    false,
		ActionAlreadyOff:   false,
		ActionOnSuppressed: false,
	}
	for a, want := range pressing {
		if got := (Decision{Action: a}).Presses(); got != want {
			t.Errorf("%s.Presses() = %v, want %v", a, got, want)
		}
	}
}
