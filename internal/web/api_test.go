package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/controller"
	"github.com/undeadpelmen/acbot/internal/sensor"
	"github.com/undeadpelmen/acbot/internal/settings"
)

type fakeStatus struct {
	snap     controller.Snapshot
	history  []controller.Report
	settings *settings.Settings
}

func (f *fakeStatus) Snapshot() controller.Snapshot { return f.snap }

func (f *fakeStatus) History(limit int) []controller.Report {
	if limit <= 0 || limit > len(f.history) {
		return f.history
	}
	return f.history[len(f.history)-limit:]
}

func (f *fakeStatus) HistoryCount() int { return len(f.history) }

func (f *fakeStatus) Settings() (settings.Settings, bool) {
	if f.settings == nil {
		return settings.Settings{}, false
	}
	return *f.settings, true
}

type probe struct {
	r   sensor.Reading
	err error
}

func (p probe) Read() (sensor.Reading, error) { return p.r, p.err }

var noon = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newAPI(st *fakeStatus, p sensor.Source) *WebAPI {
	api := NewWebAPI(st, p, time.UTC, zerolog.Nop())
	api.now = func() time.Time { return noon }
	return api
}

func get(t *testing.T, api *WebAPI, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	api.SetupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: invalid JSON %q: %v", path, w.Body.String(), err)
	}
	return w.Code, body
}

func TestGetState(t *testing.T) {
	st := &fakeStatus{snap: controller.Snapshot{
		RunID:     "abc",
		State:     controller.On,
		Warnings:  2,
		Cycles:    9,
		StartedAt: noon.Add(-time.Hour),
		LastReport: &controller.Report{
			Cycle:   9,
			Outcome: controller.OutcomeDecided,
			Action:  controller.ActionAlreadyOn,
		},
	}}

	code, body := get(t, newAPI(st, nil), "/api/v1/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := body["data"].(map[string]any)
	ac := data["ac"].(map[string]any)
	if ac["state"] != "on" || ac["warnings"] != float64(2) {
		t.Errorf("ac = %v", ac)
	}
	system := data["system"].(map[string]any)
	if system["uptime"] != float64(3600) || system["run_id"] != "abc" {
		t.Errorf("system = %v", system)
	}
	last := data["last_cycle"].(map[string]any)
	if last["action"] != "already_on" {
		t.Errorf("last_cycle = %v", last)
	}
}

func TestGetHistory(t *testing.T) {
	st := &fakeStatus{}
	for i := 1; i <= 5; i++ {
		st.history = append(st.history, controller.Report{Cycle: int64(i)})
	}
	api := newAPI(st, nil)

	code, body := get(t, api, "/api/v1/history?limit=2")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	meta := body["meta"].(map[string]any)
	if meta["count"] != float64(2) || meta["total"] != float64(5) {
		t.Errorf("meta = %v", meta)
	}

	if code, _ := get(t, api, "/api/v1/history?limit=lots"); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", code)
	}
}

func TestGetSettings(t *testing.T) {
	st := &fakeStatus{}
	api := newAPI(st, nil)

	if code, _ := get(t, api, "/api/v1/settings"); code != http.StatusServiceUnavailable {
		t.Errorf("status before first load = %d", code)
	}

	st.settings = &settings.Settings{Mode: "ON_OFF", SunriseHour: 6, SunsetHour: 19, OnScoreDay: 12, OffScoreDay: 3}
	code, body := get(t, api, "/api/v1/settings")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	derived := body["derived"].(map[string]any)
	if derived["on_threshold"] != float64(12) || derived["turn_on_enabled"] != true {
		t.Errorf("derived = %v", derived)
	}
	data := body["data"].(map[string]any)
	if data["mode"] != "ON_OFF" {
		t.Errorf("data = %v", data)
	}
}

func TestGetHealth(t *testing.T) {
	cases := []struct {
		name string
		last *controller.Report
		want string
	}{
		{"no cycle yet", nil, "starting"},
		{"decided", &controller.Report{Outcome: controller.OutcomeDecided}, "healthy"},
		{"config error", &controller.Report{Outcome: controller.OutcomeConfigError}, "degraded"},
		{"sensor fault", &controller.Report{Outcome: controller.OutcomeSensorFault}, "warning"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStatus{snap: controller.Snapshot{LastReport: tc.last, StartedAt: noon}}
			_, body := get(t, newAPI(st, nil), "/api/v1/health")
			if body["status"] != tc.want {
				t.Errorf("health = %v, want %s", body["status"], tc.want)
			}
		})
	}
}

func TestSensorTest(t *testing.T) {
	ok := probe{r: sensor.Reading{Temperature: 24.5, Humidity: 55}}
	code, body := get(t, newAPI(&fakeStatus{}, ok), "/api/v1/sensor/test")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if data := body["data"].(map[string]any); data["temperature"] != 24.5 {
		t.Errorf("data = %v", data)
	}

	if code, _ := get(t, newAPI(&fakeStatus{}, nil), "/api/v1/sensor/test"); code != http.StatusServiceUnavailable {
		t.Errorf("no probe status = %d", code)
	}
}

func TestSensorTestFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("retries wait for the sensor period")
	}
	broken := probe{err: errors.New("no response")}
	code, body := get(t, newAPI(&fakeStatus{}, broken), "/api/v1/sensor/test")
	if code != http.StatusInternalServerError || body["status"] != "error" {
		t.Errorf("status = %d body = %v", code, body)
	}
}

func TestGetScore(t *testing.T) {
	st := &fakeStatus{settings: &settings.Settings{
		ComfortTemperature:   26,
		ComfortHumidity:      50,
		TemperatureWeight:    1.5,
		HumidityWeight:       1,
		TemperatureThreshold: 30,
		HumidityThreshold:    70,
	}}
	api := newAPI(st, nil)

	code, body := get(t, api, "/api/v1/score?temperature=30&humidity=60")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if data := body["data"].(map[string]any); data["score"] != 28.26 {
		t.Errorf("data = %v", data)
	}

	if code, _ := get(t, api, "/api/v1/score?temperature=hot&humidity=60"); code != http.StatusBadRequest {
		t.Errorf("bad temperature status = %d", code)
	}
	if code, _ := get(t, api, "/api/v1/score?temperature=30&humidity=NaN"); code != http.StatusBadRequest {
		t.Errorf("NaN humidity status = %d", code)
	}
}
