// Package telemetry streams loop records to an MQTT broker as JSON.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
)

const (
	connectTimeout = 5 * time.Second
	flushTimeout   = 2 * time.Second
	quiesce        = 250 // ms
)

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher is a device.Sink. Append never waits for the broker; delivery
// failures surface from Flush.
type Publisher struct {
	client  Client
	topic   string
	qos     byte
	log     *zap.Logger
	pending []mqtt.Token
	errs    error
	sent    int
}

func NewPublisher(client Client, topic string, qos byte, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, topic: topic, qos: qos, log: log}
}

// Connect dials the broker in cfg and returns a publisher on cfg.Topic.
func Connect(cfg config.TelemetryConfig, log *zap.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	if log != nil {
		log.Info("telemetry connected", zap.String("broker", cfg.Broker), zap.String("topic", cfg.Topic))
	}
	return NewPublisher(client, cfg.Topic, cfg.QoS, log), nil
}

func (p *Publisher) Append(r device.Record) {
	payload, err := json.Marshal(r)
	if err != nil {
		p.errs = multierr.Append(p.errs, err)
		return
	}
	p.prune()
	p.pending = append(p.pending, p.client.Publish(p.topic, p.qos, false, payload))
	p.sent++
}

// prune drops completed tokens, keeping their errors.
func (p *Publisher) prune() {
	kept := p.pending[:0]
	for _, t := range p.pending {
		select {
		case <-t.Done():
			if err := t.Error(); err != nil {
				p.errs = multierr.Append(p.errs, err)
			}
		default:
			kept = append(kept, t)
		}
	}
	p.pending = kept
}

// Flush waits for outstanding publishes and disconnects.
func (p *Publisher) Flush() error {
	deadline := time.Now().Add(flushTimeout)
	for _, t := range p.pending {
		if !t.WaitTimeout(time.Until(deadline)) {
			p.errs = multierr.Append(p.errs, fmt.Errorf("mqtt publish to %s: timed out", p.topic))
			break
		}
		if err := t.Error(); err != nil {
			p.errs = multierr.Append(p.errs, err)
		}
	}
	p.pending = nil
	p.client.Disconnect(quiesce)

	errs := p.errs
	p.errs = nil
	if errs != nil {
		p.log.Warn("telemetry delivery failed", zap.Int("sent", p.sent), zap.Error(errs))
	}
	return errs
}

// Sent counts records handed to the client.
func (p *Publisher) Sent() int { return p.sent }
