package settings

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/undeadpelmen/acbot/internal/comfort"
)

var (
	ErrFetch   = errors.New("settings: fetch failed")
	ErrEmpty   = errors.New("settings: no usable configuration")
	ErrInvalid = errors.New("settings: invalid value")
)

const ModeOnOff = "ON_OFF"

// MaxSleepMinutes bounds sleep_time_in_minutes to one day.
const MaxSleepMinutes = 24 * 60

type Settings struct {
	ShouldSkip       bool   `form:"should_skip" json:"should_skip"`
	WorkHoursEnabled bool   `form:"is_work_hours_enabled" json:"is_work_hours_enabled"`
	WorkHourStart    int    `form:"work_hour_start" json:"work_hour_start"`
	WorkHourEnd      int    `form:"work_hour_end" json:"work_hour_end"`
	Mode             string `form:"mode" json:"mode"`

	MaxWarningCount int  `form:"max_already_warning_count" json:"max_already_warning_count"`
	ForceMode       bool `form:"force_mode" json:"force_mode"`

	SunriseHour   int     `form:"sunrise_hour" json:"sunrise_hour"`
	SunsetHour    int     `form:"sunset_hour" json:"sunset_hour"`
	OnScoreDay    float64 `form:"ac_on_score_day" json:"ac_on_score_day"`
	OffScoreDay   float64 `form:"ac_off_score_day" json:"ac_off_score_day"`
	OnScoreNight  float64 `form:"ac_on_score_night" json:"ac_on_score_night"`
	OffScoreNight float64 `form:"ac_off_score_night" json:"ac_off_score_night"`
	SleepMinutes  float64 `form:"sleep_time_in_minutes" json:"sleep_time_in_minutes"`

	ComfortTemperature   float64 `form:"comfort_temperature" json:"comfort_temperature"`
	ComfortHumidity      float64 `form:"comfort_humidity" json:"comfort_humidity"`
	TemperatureWeight    float64 `form:"temperature_weight" json:"temperature_weight"`
	HumidityWeight       float64 `form:"humidity_weight" json:"humidity_weight"`
	TemperatureThreshold float64 `form:"temperature_threshold" json:"temperature_threshold"`
	HumidityThreshold    float64 `form:"humidity_threshold" json:"humidity_threshold"`

	HandsDownAngle int `form:"hands_down_angle" json:"hands_down_angle"`
	HandsUpAngle   int `form:"hands_up_angle" json:"hands_up_angle"`
	UpDownDelayMs  int `form:"up_down_delay_in_ms" json:"up_down_delay_in_ms"`
}

var decoder = form.NewDecoder()

var knownKeys = func() map[string]bool {
	t := reflect.TypeOf(Settings{})
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if k := t.Field(i).Tag.Get("form"); k != "" {
			keys[k] = true
		}
	}
	return keys
}()

// Decode maps raw sheet values onto Settings. Missing or blank keys keep
// their zero value; present values that do not parse are an ErrInvalid.
func Decode(raw map[string]string) (Settings, error) {
	values := make(url.Values, len(raw))
	recognized := 0
	for k, v := range raw {
		if knownKeys[k] {
			recognized++
		}
		if v = strings.TrimSpace(v); v != "" {
			values.Set(k, v)
		}
	}
	if recognized == 0 {
		return Settings{}, ErrEmpty
	}

	var s Settings
	if err := decoder.Decode(&s, values); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type.Kind() != reflect.Float64 {
			continue
		}
		if f := v.Field(i).Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalid, t.Field(i).Tag.Get("form"), f)
		}
	}
	if s.SleepMinutes > MaxSleepMinutes {
		return fmt.Errorf("%w: sleep_time_in_minutes %v exceeds %d", ErrInvalid, s.SleepMinutes, MaxSleepMinutes)
	}
	return nil
}

func (s Settings) TurnOnEnabled() bool {
	return s.Mode == ModeOnOff
}

func (s Settings) OutsideWorkHours(hour int) bool {
	return s.WorkHoursEnabled && !WithinWindow(hour, s.WorkHourStart, s.WorkHourEnd)
}

func (s Settings) Daytime(hour int) bool {
	return WithinWindow(hour, s.SunriseHour, s.SunsetHour)
}

// Thresholds returns the on/off score pair in effect at the given hour.
func (s Settings) Thresholds(hour int) (on, off float64) {
	if s.Daytime(hour) {
		return s.OnScoreDay, s.OffScoreDay
	}
	return s.OnScoreNight, s.OffScoreNight
}

func (s Settings) SleepDuration(fallback time.Duration) time.Duration {
	if !(s.SleepMinutes > 0) {
		return fallback
	}
	return time.Duration(math.Min(s.SleepMinutes, MaxSleepMinutes) * float64(time.Minute))
}

func (s Settings) UpDownDelay() time.Duration {
	return time.Duration(s.UpDownDelayMs) * time.Millisecond
}

func (s Settings) Comfort() comfort.Params {
	return comfort.Params{
		ComfortTemperature:   s.ComfortTemperature,
		ComfortHumidity:      s.ComfortHumidity,
		TemperatureWeight:    s.TemperatureWeight,
		HumidityWeight:       s.HumidityWeight,
		TemperatureThreshold: s.TemperatureThreshold,
		HumidityThreshold:    s.HumidityThreshold,
	}
}

// WithinWindow reports whether hour falls in [start, end). A window with
// start > end wraps past midnight.
func WithinWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
