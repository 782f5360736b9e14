// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package bridge connects a Zigbee network to an MQTT broker.
//
// Network events (devices joining, being initialized, leaving and reporting
// attributes) are published as retained JSON messages on the "zigbee/..."
// topics. Commands are received on the same topic tree; "zigbee/permit" opens
// the network for new devices.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/TheThingsNetwork/zigbee-bridge/backend"
	"github.com/TheThingsNetwork/zigbee-bridge/backend/mqtt"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee/dummy"
	"github.com/apex/log"
)

// BrokerFactory creates the broker connection
type BrokerFactory func(config mqtt.Config, ctx log.Interface) (backend.Broker, error)

// NewMQTT is the BrokerFactory for MQTT brokers
func NewMQTT(config mqtt.Config, ctx log.Interface) (backend.Broker, error) {
	broker, err := mqtt.New(config, ctx)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

// Config contains the configuration of the Bridge
type Config struct {
	BrokerURI    string
	DevicePath   string
	DatabasePath string

	// NewBroker defaults to NewMQTT
	NewBroker BrokerFactory
	// NewController defaults to the simulated network
	NewController zigbee.Factory
}

var (
	statePayloadOnline  = []byte(`{"state":"online"}`)
	statePayloadOffline = []byte(`{"state":"offline"}`)
)

// Bridge between a Zigbee network and an MQTT broker
type Bridge struct {
	ctx    log.Interface
	config Config
	tasks  *Tasks

	ready      chan struct{}
	started    chan struct{}
	controller zigbee.Controller

	mu     sync.Mutex
	cancel context.CancelFunc
	err    error
}

// New returns a new Bridge
func New(config Config, ctx log.Interface) *Bridge {
	if config.NewBroker == nil {
		config.NewBroker = NewMQTT
	}
	if config.NewController == nil {
		config.NewController = dummy.Factory
	}
	ctx = ctx.WithField("Component", "Bridge")
	return &Bridge{
		ctx:     ctx,
		config:  config,
		tasks:   NewTasks(ctx),
		ready:   make(chan struct{}),
		started: make(chan struct{}),
	}
}

// Ready is closed when the bridge has published its initial state
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// fail stops the bridge with a fatal error
func (b *Bridge) fail(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	cancel := b.cancel
	b.mu.Unlock()
	b.ctx.WithError(err).Error("Bridge failed")
	if cancel != nil {
		cancel()
	}
}

func (b *Bridge) fatal() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// network waits until the network controller has started
func (b *Bridge) network(ctx context.Context) (zigbee.Controller, error) {
	select {
	case <-b.started:
		return b.controller, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run the bridge until ctx is done or a fatal error occurs. All tasks are
// waited for before the network controller and the broker connection are
// released. Run returns nil when the bridge was stopped by cancelling ctx.
// A Bridge can only be run once.
func (b *Bridge) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	var release []func() error
	defer func() {
		cancel()
		b.drain()
		for i := len(release) - 1; i >= 0; i-- {
			if err := release[i](); err != nil {
				b.ctx.WithError(err).Warn("Could not release connection")
			}
			b.drain()
		}
		b.ctx.Info("Bridge stopped")
	}()

	brokerConfig, err := ParseBrokerURI(b.config.BrokerURI)
	if err != nil {
		return err
	}
	brokerConfig.WillTopic = TopicBridgeState
	brokerConfig.WillPayload = statePayloadOffline

	b.ctx.WithFields(log.Fields{
		"Broker":   brokerConfig.Brokers[0],
		"Username": brokerConfig.Username,
	}).Info("Connecting to MQTT")
	broker, err := b.config.NewBroker(brokerConfig, b.ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := broker.Connect(); err != nil {
		return fmt.Errorf("%w: connect to broker: %v", ErrTransport, err)
	}
	publisher := NewPublisher(broker, NewEncoder(), b.ctx)
	release = append(release, func() error {
		if err := publisher.publish(TopicBridgeState, statePayloadOffline); err != nil {
			b.ctx.WithError(err).Warn("Could not publish bridge state")
		}
		return broker.Disconnect()
	})

	b.ctx.WithField("TopicFilter", TopicFilter).Debug("Subscribing to MQTT topics")
	messages, err := broker.Subscribe(TopicFilter)
	if err != nil {
		return fmt.Errorf("%w: subscribe to %s: %v", ErrTransport, TopicFilter, err)
	}
	permit := &permitJoin{
		ctx:       b.ctx.WithField("Component", "Permit"),
		publisher: publisher,
		network:   b.network,
	}
	dispatcher := &dispatcher{
		ctx:   b.ctx.WithField("Component", "Dispatcher"),
		tasks: b.tasks,
		handlers: map[string]Handler{
			TopicPermit: permit.Handle,
		},
	}
	b.tasks.Go("dispatcher", func() error {
		err := dispatcher.Run(ctx, messages)
		if err != nil {
			b.fail(err)
		}
		return err
	})

	b.ctx.WithFields(log.Fields{
		"Device":   b.config.DevicePath,
		"Database": b.config.DatabasePath,
	}).Info("Starting Zigbee")
	controller, err := b.config.NewController(zigbee.Config{
		DevicePath:   b.config.DevicePath,
		DatabasePath: b.config.DatabasePath,
	}, b.ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	release = append(release, controller.Shutdown)
	controller.AddListener(&events{
		ctx:       b.ctx.WithField("Component", "Events"),
		tasks:     b.tasks,
		publisher: publisher,
		devices:   controller.Devices,
	})
	if err := controller.Startup(ctx, false); err != nil {
		return fmt.Errorf("%w: start network: %v", ErrTransport, err)
	}
	b.controller = controller
	close(b.started)
	b.ctx.Info("Zigbee started")

	if err := b.publishDefaults(publisher, controller); err != nil {
		return err
	}
	close(b.ready)

	<-ctx.Done()
	return b.fatal()
}

func (b *Bridge) publishDefaults(publisher *Publisher, controller zigbee.Controller) error {
	if err := publisher.Publish(TopicDevices, deviceList(controller.Devices())); err != nil {
		return err
	}
	if err := publisher.Publish(TopicPermitting, map[string]interface{}{"status": false}); err != nil {
		return err
	}
	return publisher.publish(TopicBridgeState, statePayloadOnline)
}

func (b *Bridge) drain() {
	if err := b.tasks.Wait(); err != nil {
		b.ctx.WithError(err).Warn("Not all tasks completed successfully")
	}
}
