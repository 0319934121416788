package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/controller"
)

type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Prefix         string
	QoS            byte
	ConnectTimeout time.Duration
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every report as JSON on <prefix>/status and keeps a retained
// online/offline marker on <prefix>/lwt.
type MQTT struct {
	client publisher
	conn   mqtt.Client
	prefix string
	qos    byte
	wait   time.Duration
}

func NewMQTT(cfg MQTTConfig, log zerolog.Logger) (*MQTT, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "acbot"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	lwt := cfg.Prefix + "/lwt"

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(30*time.Second).
		SetWill(lwt, "offline", 1, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
		c.Publish(lwt, 1, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(cfg.ConnectTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}

	return &MQTT{
		client: client,
		conn:   client,
		prefix: cfg.Prefix,
		qos:    cfg.QoS,
		wait:   5 * time.Second,
	}, nil
}

func (m *MQTT) Name() string {
	return "mqtt"
}

func (m *MQTT) Notify(ctx context.Context, r controller.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return m.publish(ctx, m.prefix+"/status", payload)
}

func (m *MQTT) publish(ctx context.Context, topic string, payload []byte) error {
	token := m.client.Publish(topic, m.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.wait):
		return fmt.Errorf("publish %s: timed out after %s", topic, m.wait)
	}
}

func (m *MQTT) Close() {
	if m.conn == nil {
		return
	}
	m.conn.Publish(m.prefix+"/lwt", 1, true, "offline").WaitTimeout(time.Second)
	m.conn.Disconnect(250)
}
