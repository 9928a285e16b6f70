// Package publish sends completed sessions to an MQTT broker: one retained
// summary message per session and one message per valid step.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/banshee-data/step.report/internal/monitoring"
	"github.com/banshee-data/step.report/internal/session"
)

// DefaultTopicPrefix roots every topic the publisher writes.
const DefaultTopicPrefix = "steps"

// DefaultTimeout bounds each connect and publish round trip.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timed out waiting for broker")

// SessionMessage is the retained payload on <prefix>/session.
type SessionMessage struct {
	ID         uuid.UUID `json:"id"`
	Seed       uint64    `json:"seed"`
	StartedAt  time.Time `json:"started_at"`
	SampleRate int       `json:"sample_rate"`
	Samples    int       `json:"samples"`
	Detected   int       `json:"total_detected"`
	TotalSteps int       `json:"total_steps"`
	Regular    bool      `json:"regular"`
}

// StepMessage is the payload on <prefix>/events, one per valid step.
type StepMessage struct {
	SessionID uuid.UUID `json:"session_id"`
	Step      int       `json:"step"`
	Time      float64   `json:"time"`
}

// Publisher writes sessions to a connected MQTT client.
type Publisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	logf    func(format string, v ...interface{})
}

// New wraps an already connected client. An empty prefix uses
// DefaultTopicPrefix.
func New(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{
		client:  client,
		prefix:  prefix,
		timeout: DefaultTimeout,
		logf:    monitoring.Component("mqtt"),
	}
}

// Connect dials broker (e.g. tcp://localhost:1883) and returns a Publisher.
func Connect(broker, clientID, prefix string) (*Publisher, error) {
	if clientID == "" {
		clientID = "steps-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(DefaultTimeout)

	client := mqtt.NewClient(opts)
	p := New(client, prefix)
	if err := p.wait(client.Connect()); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	p.logf("connected to %s as %s", broker, clientID)
	return p, nil
}

// SessionTopic is where the retained session summary is published.
func (p *Publisher) SessionTopic() string { return p.prefix + "/session" }

// EventsTopic is where step messages are published.
func (p *Publisher) EventsTopic() string { return p.prefix + "/events" }

// SaveSession publishes sess. It satisfies the API's session store so
// regenerated sessions are published too.
func (p *Publisher) SaveSession(sess *session.Session) error {
	return p.PublishSession(sess)
}

// PublishSession sends the summary, then each valid step in order.
func (p *Publisher) PublishSession(sess *session.Session) error {
	summary := SessionMessage{
		ID:         sess.ID,
		Seed:       sess.Seed,
		StartedAt:  sess.StartedAt,
		SampleRate: sess.Config.SampleRate,
		Samples:    len(sess.Samples),
		Detected:   sess.TotalDetected(),
		TotalSteps: sess.Result.TotalSteps,
		Regular:    sess.Result.Regular,
	}
	if err := p.publish(p.SessionTopic(), true, summary); err != nil {
		return err
	}

	for _, ev := range sess.Steps() {
		msg := StepMessage{SessionID: sess.ID, Step: ev.Number(), Time: ev.Time}
		if err := p.publish(p.EventsTopic(), false, msg); err != nil {
			return err
		}
	}
	p.logf("published session %s: %d steps", sess.ID, sess.TotalDetected())
	return nil
}

// Close disconnects, allowing 250ms for in-flight messages.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	if err := p.wait(p.client.Publish(topic, 0, retained, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) wait(token mqtt.Token) error {
	if !token.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	return token.Error()
}
