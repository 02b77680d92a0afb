// Package events forwards store mutations to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/store"
)

// ErrQueueFull is logged when a mutation is dropped because the broker is slow.
var ErrQueueFull = errors.New("event queue full")

// Client is the subset of the paho client used by the publisher.
type Client interface {
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Event is the payload published for each mutation.
type Event struct {
	Name     string         `json:"name"`
	Resource store.Resource `json:"resource,omitempty"`
	At       time.Time      `json:"at"`
}

// MQTTPublisher publishes mutations under <topic>/<name>. Publishing happens
// on a background goroutine so store commits never wait on the broker.
type MQTTPublisher struct {
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
	queue   chan store.Mutation
	log     logrus.FieldLogger
}

// Connect dials broker and returns a publisher for topic.
func Connect(broker, clientID, topic string, log logrus.FieldLogger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, token.Error())
	}
	return NewMQTTPublisher(client, topic, log), nil
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client Client, topic string, log logrus.FieldLogger) *MQTTPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MQTTPublisher{
		client:  client,
		topic:   strings.TrimSuffix(topic, "/"),
		timeout: 2 * time.Second,
		queue:   make(chan store.Mutation, 64),
		log:     log,
	}
}

// Topic returns the topic a mutation is published to.
func (p *MQTTPublisher) Topic(name string) string {
	return p.topic + "/" + name
}

// Publish sends one mutation and waits for the broker.
func (p *MQTTPublisher) Publish(m store.Mutation) error {
	payload, err := json.Marshal(Event{Name: m.Name, Resource: m.Resource, At: m.At})
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(m.Name), p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timed out", m.Name)
	}
	return token.Error()
}

// Enqueue schedules m for publishing. It never blocks.
func (p *MQTTPublisher) Enqueue(m store.Mutation) {
	select {
	case p.queue <- m:
	default:
		p.log.WithError(ErrQueueFull).WithField("mutation", m.Name).Warn("Dropping event")
	}
}

// Run publishes queued mutations until ctx is done, then drains the queue.
func (p *MQTTPublisher) Run(ctx context.Context) {
	for {
		select {
		case m := <-p.queue:
			p.publishLogged(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-p.queue:
					p.publishLogged(m)
				default:
					return
				}
			}
		}
	}
}

func (p *MQTTPublisher) publishLogged(m store.Mutation) {
	if err := p.Publish(m); err != nil {
		p.log.WithError(err).WithField("topic", p.Topic(m.Name)).Warn("Failed to publish event")
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Bridge forwards every mutation of s to p. The returned func detaches it.
func Bridge(s *store.Store, p *MQTTPublisher) func() {
	return s.Subscribe(p.Enqueue)
}
