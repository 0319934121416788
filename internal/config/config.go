package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const envPrefix = "ACBOT_"

var Backends = []string{"periph", "gobot", "rpio", "mock"}

type Config struct {
	SheetURL string

	TelegramToken  string
	TelegramChatID string
	TelegramURL    string

	FormURL    string
	FormFields map[string]string

	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTPrefix   string

	Backend      string
	ServoEnabled bool
	DHTPin       int
	ServoPin     int
	BuzzerPin    int

	Timezone      string
	HTTPAddr      string
	HTTPTimeout   time.Duration
	FallbackSleep time.Duration
	SampleGap     time.Duration
	LogLevel      string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// ParseFields reads "name=entry.1,other=entry.2" pairs.
func ParseFields(s string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		name, entry, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		fields[strings.TrimSpace(name)] = strings.TrimSpace(entry)
	}
	return fields
}

// BindFlags registers every option on fs. Each flag's default comes from the
// matching ACBOT_* environment variable when it is set.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.SheetURL, "sheet-url", getEnv("SHEET_URL", ""), "published CSV export URL of the settings sheet (ACBOT_SHEET_URL)")

	fs.StringVar(&c.TelegramToken, "telegram-token", getEnv("TELEGRAM_TOKEN", ""), "Telegram bot token (ACBOT_TELEGRAM_TOKEN)")
	fs.StringVar(&c.TelegramChatID, "telegram-chat-id", getEnv("TELEGRAM_CHAT_ID", ""), "Telegram chat to report to (ACBOT_TELEGRAM_CHAT_ID)")
	fs.StringVar(&c.TelegramURL, "telegram-url", getEnv("TELEGRAM_URL", "https://api.telegram.org"), "Telegram Bot API base URL (ACBOT_TELEGRAM_URL)")

	fs.StringVar(&c.FormURL, "form-url", getEnv("FORM_URL", ""), "Google Form formResponse URL (ACBOT_FORM_URL)")
	fs.StringToStringVar(&c.FormFields, "form-fields", ParseFields(getEnv("FORM_FIELDS", "")), "row name to form entry id, e.g. temperature=entry.123 (ACBOT_FORM_FIELDS)")

	fs.StringVar(&c.MQTTBroker, "mqtt-broker", getEnv("MQTT_BROKER", ""), "MQTT broker URL, e.g. tcp://localhost:1883 (ACBOT_MQTT_BROKER)")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", getEnv("MQTT_CLIENT_ID", "acbot"), "MQTT client id (ACBOT_MQTT_CLIENT_ID)")
	fs.StringVar(&c.MQTTUsername, "mqtt-username", getEnv("MQTT_USERNAME", ""), "MQTT username (ACBOT_MQTT_USERNAME)")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", getEnv("MQTT_PASSWORD", ""), "MQTT password (ACBOT_MQTT_PASSWORD)")
	fs.StringVar(&c.MQTTPrefix, "mqtt-prefix", getEnv("MQTT_PREFIX", "acbot"), "MQTT topic prefix (ACBOT_MQTT_PREFIX)")

	fs.StringVar(&c.Backend, "backend", getEnv("BACKEND", "periph"), "hardware backend: "+strings.Join(Backends, ", ")+" (ACBOT_BACKEND)")
	fs.BoolVar(&c.ServoEnabled, "servo", getEnvBool("SERVO_ENABLED", false), "physically press the button (ACBOT_SERVO_ENABLED)")
	fs.IntVar(&c.DHTPin, "dht-pin", getEnvInt("DHT_PIN", 4), "BCM number of the DHT22 data line (ACBOT_DHT_PIN)")
	fs.IntVar(&c.ServoPin, "servo-pin", getEnvInt("SERVO_PIN", 18), "BCM number of the servo signal line (ACBOT_SERVO_PIN)")
	fs.IntVar(&c.BuzzerPin, "buzzer-pin", getEnvInt("BUZZER_PIN", 23), "BCM number of the buzzer, 0 for none (ACBOT_BUZZER_PIN)")

	fs.StringVar(&c.Timezone, "timezone", getEnv("TIMEZONE", "Asia/Kolkata"), "IANA zone used for work hours and day/night (ACBOT_TIMEZONE)")
	fs.StringVar(&c.HTTPAddr, "http-addr", getEnv("HTTP_ADDR", ":8080"), "status API listen address, empty to disable (ACBOT_HTTP_ADDR)")
	fs.DurationVar(&c.HTTPTimeout, "http-timeout", getEnvDuration("HTTP_TIMEOUT", 15*time.Second), "timeout for outbound HTTP requests (ACBOT_HTTP_TIMEOUT)")
	fs.DurationVar(&c.FallbackSleep, "fallback-sleep", getEnvDuration("FALLBACK_SLEEP", 5*time.Minute), "pause between cycles when settings give none (ACBOT_FALLBACK_SLEEP)")
	fs.DurationVar(&c.SampleGap, "sample-gap", getEnvDuration("SAMPLE_GAP", 2*time.Second), "wait between the two sensor samples (ACBOT_SAMPLE_GAP)")
	fs.StringVar(&c.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "log level (ACBOT_LOG_LEVEL)")
}

func (c Config) Validate() error {
	var errs []error
	if c.SheetURL == "" {
		errs = append(errs, errors.New("sheet-url is required"))
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("telegram-token and telegram-chat-id must be set together"))
	}
	known := false
	for _, b := range Backends {
		if c.Backend == b {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.FallbackSleep <= 0 {
		errs = append(errs, errors.New("fallback-sleep must be positive"))
	}
	if c.SampleGap < 0 {
		errs = append(errs, errors.New("sample-gap must not be negative"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to a fixed IST offset when the
// zone database is unavailable.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}
