// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"fmt"

	"github.com/TheThingsNetwork/zigbee-bridge/backend"
	"github.com/TheThingsNetwork/zigbee-bridge/serialize"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/apex/log"
)

// PublishQoS is the QoS of all publications (at least once)
const PublishQoS byte = 0x01

// NewEncoder returns an Encoder that knows the network entities
func NewEncoder() *serialize.Encoder {
	enc := serialize.New()
	enc.Register(&zigbee.Device{}, zigbee.DeviceFields...)
	enc.Register(zigbee.NodeDescriptor{}, zigbee.NodeDescriptorFields...)
	enc.Register(&zigbee.Endpoint{}, zigbee.EndpointFields...)
	enc.Register(zigbee.Cluster{}, zigbee.ClusterFields...)
	enc.RegisterPlaceholder(&zigbee.ZDO{}, zigbee.ZDOPlaceholder)
	return enc
}

// Publisher serializes values and publishes them retained to the broker
type Publisher struct {
	ctx     log.Interface
	broker  backend.Broker
	encoder *serialize.Encoder
}

// NewPublisher returns a new Publisher
func NewPublisher(broker backend.Broker, encoder *serialize.Encoder, ctx log.Interface) *Publisher {
	return &Publisher{
		ctx:     ctx,
		broker:  broker,
		encoder: encoder,
	}
}

// Publish value as JSON on topic
func (p *Publisher) Publish(topic string, value interface{}) error {
	payload, err := p.encoder.Marshal(value)
	if err != nil {
		publishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("bridge: could not serialize message for %s: %w", topic, err)
	}
	return p.publish(topic, payload)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	p.ctx.WithFields(log.Fields{
		"Topic":   topic,
		"Payload": string(payload),
	}).Info("Publish")
	if err := p.broker.Publish(topic, payload, PublishQoS, true); err != nil {
		publishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("%w to %s: %v", ErrPublish, topic, err)
	}
	publications.WithLabelValues(topic).Inc()
	return nil
}
