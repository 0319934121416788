package settings

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleSheet = "\"should_skip\",\"FALSE\"\r\n" +
	"\"is_work_hours_enabled\",\"TRUE\"\r\n" +
	"\"work_hour_start\",\"9\"\r\n" +
	"\"work_hour_end\",\"18\"\r\n" +
	"\"mode\",\"ON_OFF\"\r\n" +
	"\"max_already_warning_count\",\"3\"\r\n" +
	"\"force_mode\",\"TRUE\"\r\n" +
	"\"sunrise_hour\",\"6\"\r\n" +
	"\"sunset_hour\",\"19\"\r\n" +
	"\"ac_on_score_day\",\"10\"\r\n" +
	"\"ac_off_score_day\",\"2\"\r\n" +
	"\"ac_on_score_night\",\"14.5\"\r\n" +
	"\"ac_off_score_night\",\"-1\"\r\n" +
	"\"sleep_time_in_minutes\",\"15\"\r\n" +
	"\"comfort_temperature\",\"26\"\r\n" +
	"\"comfort_humidity\",\"50\"\r\n" +
	"\"temperature_weight\",\"1.5\"\r\n" +
	"\"humidity_weight\",\"1\"\r\n" +
	"\"temperature_threshold\",\"30\"\r\n" +
	"\"humidity_threshold\",\"70\"\r\n" +
	"\"hands_down_angle\",\"80\"\r\n" +
	"\"hands_up_angle\",\"170\"\r\n" +
	"\"up_down_delay_in_ms\",\"400\"\r\n"

func TestParseSheet(t *testing.T) {
	body := []byte("\ufeff\"mode\",\"ON_OFF\"\n" +
		"broken line without comma\n" +
		"\"\",\"empty key\"\n" +
		"\"note\",\"has, a comma\"\n" +
		"\"bad \"quote,\"x\"\n" +
		"\n" +
		"plain,value\n" +
		"\"mode\",\"OFF_ONLY\"\n")

	got := ParseSheet(body)

	want := map[string]string{
		"mode":  "OFF_ONLY",
		"note":  "has, a comma",
		"plain": "value",
	}
	if len(got) != len(want) {
		t.Fatalf("ParseSheet returned %d keys (%v), want %d", len(got), got, len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q = %q, want %q", k, got[k], v)
		}
	}
}

func TestDecode(t *testing.T) {
	s, err := Decode(ParseSheet([]byte(sampleSheet)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if s.ShouldSkip || !s.WorkHoursEnabled || !s.ForceMode {
		t.Errorf("booleans decoded wrong: %+v", s)
	}
	if s.WorkHourStart != 9 || s.WorkHourEnd != 18 {
		t.Errorf("work hours = %d..%d", s.WorkHourStart, s.WorkHourEnd)
	}
	if !s.TurnOnEnabled() {
		t.Errorf("mode %q should enable turning on", s.Mode)
	}
	if s.MaxWarningCount != 3 {
		t.Errorf("MaxWarningCount = %d", s.MaxWarningCount)
	}
	if s.OnScoreNight != 14.5 || s.OffScoreNight != -1 {
		t.Errorf("night thresholds = %v/%v", s.OnScoreNight, s.OffScoreNight)
	}
	if got := s.SleepDuration(time.Minute); got != 15*time.Minute {
		t.Errorf("SleepDuration = %v", got)
	}
	if got := s.UpDownDelay(); got != 400*time.Millisecond {
		t.Errorf("UpDownDelay = %v", got)
	}
	p := s.Comfort()
	if p.ComfortTemperature != 26 || p.TemperatureWeight != 1.5 || p.HumidityThreshold != 70 {
		t.Errorf("Comfort() = %+v", p)
	}
	if s.HandsDownAngle != 80 || s.HandsUpAngle != 170 {
		t.Errorf("angles = %d/%d", s.HandsDownAngle, s.HandsUpAngle)
	}
}

func TestDecodeMissingKeysAreZero(t *testing.T) {
	s, err := Decode(map[string]string{"mode": "ON_OFF", "force_mode": ""})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.ForceMode || s.MaxWarningCount != 0 || s.OnScoreDay != 0 || s.SleepMinutes != 0 {
		t.Errorf("expected zero values, got %+v", s)
	}
}

func TestDecodeInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"integer":  {"work_hour_start": "nine"},
		"float":    {"ac_on_score_day": "high"},
		"boolean":  {"should_skip": "maybe"},
		"fraction": {"max_already_warning_count": "2.5"},
		"nan":      {"ac_on_score_day": "NaN"},
		"infinity": {"temperature_weight": "-Inf"},
		"too long": {"sleep_time_in_minutes": "1e300"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Decode(%v) error = %v, want ErrInvalid", raw, err)
			}
		})
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	_, err := Decode(map[string]string{"<html>": "sign in"})
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("error = %v, want ErrEmpty", err)
	}
}

func TestWithinWindow(t *testing.T) {
	cases := []struct {
		hour, start, end int
		want             bool
	}{
		{9, 9, 18, true},
		{17, 9, 18, true},
		{18, 9, 18, false},
		{8, 9, 18, false},
		{23, 22, 6, true},
		{2, 22, 6, true},
		{6, 22, 6, false},
		{12, 22, 6, false},
		{5, 5, 5, false},
	}
	for _, tc := range cases {
		if got := WithinWindow(tc.hour, tc.start, tc.end); got != tc.want {
			t.Errorf("WithinWindow(%d, %d, %d) = %v, want %v", tc.hour, tc.start, tc.end, got, tc.want)
		}
	}
}

func TestThresholdsAndWorkHours(t *testing.T) {
	s := Settings{
		WorkHoursEnabled: true,
		WorkHourStart:    9,
		WorkHourEnd:      18,
		SunriseHour:      6,
		SunsetHour:       19,
		OnScoreDay:       10,
		OffScoreDay:      2,
		OnScoreNight:     15,
		OffScoreNight:    5,
	}

	if on, off := s.Thresholds(12); on != 10 || off != 2 {
		t.Errorf("day thresholds = %v/%v", on, off)
	}
	if on, off := s.Thresholds(22); on != 15 || off != 5 {
		t.Errorf("night thresholds = %v/%v", on, off)
	}
	if !s.OutsideWorkHours(20) || s.OutsideWorkHours(10) {
		t.Error("work hours gate wrong")
	}

	s.WorkHoursEnabled = false
	if s.OutsideWorkHours(3) {
		t.Error("disabled work hours must never gate")
	}
}

func TestSleepDurationFallback(t *testing.T) {
	if got := (Settings{}).SleepDuration(5 * time.Minute); got != 5*time.Minute {
		t.Errorf("zero sleep = %v, want fallback", got)
	}
	if got := (Settings{SleepMinutes: -3}).SleepDuration(time.Minute); got != time.Minute {
		t.Errorf("negative sleep = %v, want fallback", got)
	}
	if got := (Settings{SleepMinutes: 0.5}).SleepDuration(time.Minute); got != 30*time.Second {
		t.Errorf("half minute = %v", got)
	}
	if got := (Settings{SleepMinutes: 1e300}).SleepDuration(time.Minute); got != 24*time.Hour {
		t.Errorf("huge sleep = %v, want one day", got)
	}
	if got := (Settings{SleepMinutes: math.NaN()}).SleepDuration(time.Minute); got != time.Minute {
		t.Errorf("NaN sleep = %v, want fallback", got)
	}
}

func TestSourceLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleSheet))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, NewHTTPFetcher(time.Second))
	s, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.OnScoreDay != 10 {
		t.Errorf("OnScoreDay = %v", s.OnScoreDay)
	}
}

func TestSourceLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: ErrFetch,
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    ErrEmpty,
		},
		{
			name: "garbage value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("\"sleep_time_in_minutes\",\"soon\"\n"))
			},
			want: ErrInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewSource(srv.URL, NewHTTPFetcher(time.Second)).Load(context.Background())
			if !errors.Is(err, tc.want) {
				t.Errorf("Load error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSourceLoadUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewSource(url, NewHTTPFetcher(time.Second)).Load(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Errorf("Load error = %v, want ErrFetch", err)
	}
}
