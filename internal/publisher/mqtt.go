package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"otkaz/internal/core"
	"otkaz/internal/services"
)

const (
	DefaultTopicPrefix = "otkaz"
	publishTimeout     = 5 * time.Second
)

// Config describes the MQTT broker connection.
type Config struct {
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
}

// StatePayload is published retained to <prefix>/state after each save.
type StatePayload struct {
	services.Overview
	Reports   int    `json:"reports"`
	UpdatedAt string `json:"updatedAt"`
}

// Publisher mirrors the streak state to an MQTT broker. It implements
// services.Observer.
type Publisher struct {
	client       mqtt.Client
	topicPrefix  string
	catalog      core.Catalog
	defaultStart time.Time
	now          func() time.Time
}

var _ services.Observer = (*Publisher)(nil)

// New connects to the broker. An empty broker address is an error; callers
// skip the publisher entirely when MQTT is not configured.
func New(cfg Config, catalog core.Catalog, defaultStart time.Time) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "otkaz"
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(15*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newPublisher(client, cfg.TopicPrefix, catalog, defaultStart), nil
}

func newPublisher(client mqtt.Client, prefix string, catalog core.Catalog, defaultStart time.Time) *Publisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{
		client:       client,
		topicPrefix:  prefix,
		catalog:      catalog,
		defaultStart: defaultStart,
		now:          time.Now,
	}
}

func (p *Publisher) Topic() string {
	return p.topicPrefix + "/state"
}

// ReportsSaved publishes the new state. Failures are logged only.
func (p *Publisher) ReportsSaved(ctx context.Context, reports []core.DailyReport) {
	if p.client == nil {
		return
	}
	body, err := BuildStatePayload(reports, p.catalog, p.defaultStart, p.now())
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode MQTT state", "error", err)
		return
	}

	token := p.client.Publish(p.Topic(), 1, true, body)
	if !token.WaitTimeout(publishTimeout) {
		slog.WarnContext(ctx, "MQTT publish timed out", "topic", p.Topic())
		return
	}
	if err := token.Error(); err != nil {
		slog.WarnContext(ctx, "MQTT publish failed", "topic", p.Topic(), "error", err)
		return
	}
	slog.DebugContext(ctx, "Published streak state", "topic", p.Topic(), "reports", len(reports))
}

// BuildStatePayload renders the retained state message.
func BuildStatePayload(reports []core.DailyReport, catalog core.Catalog, defaultStart, now time.Time) ([]byte, error) {
	return json.Marshal(StatePayload{
		Overview:  services.Summarize(reports, catalog, defaultStart, now),
		Reports:   len(reports),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	})
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func brokerURL(broker string) string {
	for _, scheme := range []string{"tcp://", "ssl://", "ws://", "wss://", "mqtt://", "mqtts://"} {
		if strings.HasPrefix(broker, scheme) {
			return broker
		}
	}
	return "tcp://" + broker
}
