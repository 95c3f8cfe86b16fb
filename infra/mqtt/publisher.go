package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/infra/logger"
)

// Point is one bounded timestamp of a published requirement.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// RequirementMessage is the payload published for every requirement.
type RequirementMessage struct {
	MessageID string  `json:"message_id"`
	RunID     string  `json:"run_id"`
	Source    string  `json:"source"`
	Kind      string  `json:"kind"`
	Direction string  `json:"direction"`
	Points    []Point `json:"points"`
	Timestamp int64   `json:"timestamp"`
}

// RequirementPublisher hands emitted requirements to the aggregator that
// enforces them, through an MQTT broker.
type RequirementPublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewRequirementPublisher connects to the broker.
func NewRequirementPublisher(cfg Config) (*RequirementPublisher, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &RequirementPublisher{
		topic:      strings.TrimSuffix(cfg.Topic, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}
	if p.topic == "" {
		p.topic = DefaultTopic
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// Topic returns the topic a requirement from source is published on.
func (p *RequirementPublisher) Topic(source string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(source), "_"))
	return p.topic + "/" + slug
}

// NewRequirementMessage builds the payload of r.
func NewRequirementMessage(runID string, r model.Requirement) RequirementMessage {
	s := r.Series()
	points := make([]Point, len(s.Index))
	for i, t := range s.Index {
		points[i] = Point{Time: t, Value: s.Values[i]}
	}
	return RequirementMessage{
		MessageID: uuid.NewString(),
		RunID:     runID,
		Source:    r.Source(),
		Kind:      string(r.Kind()),
		Direction: string(r.Direction()),
		Points:    points,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Publish sends one requirement, retrying with exponential backoff. It
// returns the message ID.
func (p *RequirementPublisher) Publish(ctx context.Context, runID string, r model.Requirement) (string, error) {
	msg := NewRequirementMessage(runID, r)
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	topic := p.Topic(r.Source())
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Debugf("sent %s requirement %s to %s", r.Kind(), msg.MessageID, topic)
			return msg.MessageID, nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return "", fmt.Errorf("publish %s requirement of %s: %w", r.Kind(), r.Source(), publishErr)
}

// PublishAll sends every requirement in order and stops at the first error.
func (p *RequirementPublisher) PublishAll(ctx context.Context, runID string, reqs []model.Requirement) error {
	for _, r := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.Publish(ctx, runID, r); err != nil {
			return err
		}
	}
	p.log.Infof("published %d requirements for run %s", len(reqs), runID)
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (p *RequirementPublisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
