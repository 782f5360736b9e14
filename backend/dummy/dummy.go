// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package dummy implements an in-memory message broker
package dummy

import (
	"errors"
	"strings"
	"sync"

	"github.com/TheThingsNetwork/zigbee-bridge/types"
	"github.com/apex/log"
)

// BufferSize indicates the maximum number of dummy messages that should be buffered
var BufferSize = 10

// ErrNotConnected is returned when using the Dummy before Connect
var ErrNotConnected = errors.New("dummy: not connected")

// Publication is a message that was published to the Dummy
type Publication struct {
	types.Message
	QoS byte
}

type subscription struct {
	filter   string
	messages chan *types.Message
}

// Dummy broker
type Dummy struct {
	mu            sync.Mutex
	ctx           log.Interface
	connected     bool
	subscriptions map[string]*subscription
	retained      map[string][]byte
	published     []Publication
	publishErr    error
}

// New returns a new Dummy broker
func New(ctx log.Interface) *Dummy {
	return &Dummy{
		ctx:           ctx.WithField("Connector", "Dummy"),
		subscriptions: make(map[string]*subscription),
		retained:      make(map[string][]byte),
	}
}

// Connect implements backend.Broker
func (d *Dummy) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.ctx.Debug("Connected")
	return nil
}

// Disconnect implements backend.Broker. Subscription channels are closed.
func (d *Dummy) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for filter, sub := range d.subscriptions {
		close(sub.messages)
		delete(d.subscriptions, filter)
	}
	d.connected = false
	d.ctx.Debug("Disconnected")
	return nil
}

// Connected returns true if the Dummy is connected
func (d *Dummy) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// FailPublish makes subsequent publications fail with err. Passing nil makes them succeed again.
func (d *Dummy) FailPublish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishErr = err
}

// Publish implements backend.Broker. The message is recorded, retained if
// requested, and delivered to matching subscriptions.
func (d *Dummy) Publish(topic string, payload []byte, qos byte, retained bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := d.ctx.WithField("Topic", topic)
	if !d.connected {
		return ErrNotConnected
	}
	if d.publishErr != nil {
		return d.publishErr
	}
	d.published = append(d.published, Publication{
		Message: types.Message{Topic: topic, Payload: payload, Retained: retained},
		QoS:     qos,
	})
	if retained {
		if len(payload) == 0 {
			delete(d.retained, topic)
		} else {
			d.retained[topic] = payload
		}
	}
	d.deliver(&types.Message{Topic: topic, Payload: payload})
	ctx.Debug("Published")
	return nil
}

// Inject delivers a message to matching subscriptions as if a client had published it
func (d *Dummy) Inject(topic string, payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliver(&types.Message{Topic: topic, Payload: payload})
}

func (d *Dummy) deliver(message *types.Message) {
	for _, sub := range d.subscriptions {
		if !Match(sub.filter, message.Topic) {
			continue
		}
		select {
		case sub.messages <- message:
		default:
			d.ctx.WithField("Topic", message.Topic).Debug("Did not deliver message [buffer full]")
		}
	}
}

// Subscribe implements backend.Broker. Like the MQTT backend, retained
// messages are not delivered to new subscriptions; use Retained to inspect them.
func (d *Dummy) Subscribe(topicFilter string) (<-chan *types.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, ErrNotConnected
	}
	if existing, ok := d.subscriptions[topicFilter]; ok {
		close(existing.messages)
	}
	sub := &subscription{
		filter:   topicFilter,
		messages: make(chan *types.Message, BufferSize),
	}
	d.subscriptions[topicFilter] = sub
	d.ctx.WithField("TopicFilter", topicFilter).Debug("Subscribed")
	return sub.messages, nil
}

// Unsubscribe implements backend.Broker
func (d *Dummy) Unsubscribe(topicFilter string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.subscriptions[topicFilter]; ok {
		close(sub.messages)
		delete(d.subscriptions, topicFilter)
	}
	d.ctx.WithField("TopicFilter", topicFilter).Debug("Unsubscribed")
	return nil
}

// Published returns the messages that were published to the Dummy
func (d *Dummy) Published() []Publication {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Publication(nil), d.published...)
}

// PublishedTo returns the messages that were published to the given topic
func (d *Dummy) PublishedTo(topic string) (publications []Publication) {
	for _, publication := range d.Published() {
		if publication.Topic == topic {
			publications = append(publications, publication)
		}
	}
	return
}

// Retained returns the retained payload for a topic
func (d *Dummy) Retained(topic string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, ok := d.retained[topic]
	return payload, ok
}

// Match returns true if the topic matches the MQTT topic filter
func Match(filter, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}
