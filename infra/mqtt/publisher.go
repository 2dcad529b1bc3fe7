// Package mqtt publishes tick snapshots to an MQTT broker so external
// observers (dashboards, fleet tooling) can follow a run live.
package mqtt

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	corelogger "github.com/kilianp07/robocharge/core/logger"
	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/infra/logger"
)

// Config defines the connection parameters for the snapshot publisher.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "robocharge"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "robocharge"
	}
}

// SnapshotPublisher sends one retained-free message per tick snapshot.
type SnapshotPublisher struct {
	cli    paho.Client
	prefix string
	qos    byte
	log    corelogger.Logger
}

var newClient = func(opts *paho.ClientOptions) paho.Client {
	return paho.NewClient(opts)
}

// NewSnapshotPublisher connects to the broker.
func NewSnapshotPublisher(cfg Config) (*SnapshotPublisher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	cli := newClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &SnapshotPublisher{
		cli:    cli,
		prefix: cfg.TopicPrefix,
		qos:    cfg.QoS,
		log:    logger.New("mqtt-publisher"),
	}, nil
}

// Publish sends the snapshot to <prefix>/run/<run_id>/snapshot.
func (p *SnapshotPublisher) Publish(snap sim.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	topic := fmt.Sprintf("%s/run/%s/snapshot", p.prefix, snap.RunID)
	if token := p.cli.Publish(topic, p.qos, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *SnapshotPublisher) Close() {
	p.cli.Disconnect(250)
}
