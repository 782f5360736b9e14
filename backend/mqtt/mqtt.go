// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheThingsNetwork/ttn/utils/random"
	"github.com/TheThingsNetwork/zigbee-bridge/types"
	"github.com/apex/log"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a connection to the broker
var ErrNotConnected = errors.New("mqtt: not connected")

// New returns a new MQTT connection. It does not connect yet.
func New(config Config, ctx log.Interface) (*MQTT, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("mqtt: no brokers configured")
	}
	c := &MQTT{
		ctx:           ctx.WithField("Connector", "MQTT"),
		subscriptions: make(map[string]subscription),
	}
	c.client = paho.NewClient(c.clientOptions(config))
	return c, nil
}

func (c *MQTT) clientOptions(config Config) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	for _, broker := range config.Brokers {
		opts.AddBroker(broker)
	}
	if config.TLSConfig != nil {
		opts.SetTLSConfig(config.TLSConfig)
	}
	clientID := config.ClientID
	if clientID == "" {
		clientID = "zigbee-bridge-" + random.String(16)
	}
	opts.SetClientID(clientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	if config.WillTopic != "" {
		opts.SetBinaryWill(config.WillTopic, config.WillPayload, PublishQoS, true)
	}
	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		c.ctx.WithField("Topic", msg.Topic()).Warn("Received message without subscription")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.ctx.WithError(err).Warn("Disconnected, reconnecting")
		c.mu.Lock()
		c.reconnecting = true
		c.mu.Unlock()
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.ctx.Info("Connected")
		c.mu.Lock()
		reconnected := c.reconnecting
		c.reconnecting = false
		c.mu.Unlock()
		if reconnected {
			c.resubscribe()
		}
	})
	return opts
}

// QoS of publications and subscriptions (at least once)
var (
	PublishQoS   byte = 0x01
	SubscribeQoS byte = 0x01
)

// BufferSize indicates the maximum number of MQTT messages that should be buffered
var BufferSize = 64

// Config contains configuration for MQTT
type Config struct {
	Brokers   []string
	Username  string
	Password  string
	TLSConfig *tls.Config
	ClientID  string

	// The will is published (retained) by the broker when the connection is lost
	WillTopic   string
	WillPayload []byte
}

type subscription struct {
	handler paho.MessageHandler
	cancel  func()
}

// MQTT connection to a broker
type MQTT struct {
	ctx    log.Interface
	client paho.Client

	mu            sync.Mutex
	subscriptions map[string]subscription
	reconnecting  bool
}

var (
	// ConnectRetries says how many times the client should retry a failed connection
	ConnectRetries = 10
	// ConnectRetryDelay says how long the client should wait between retries
	ConnectRetryDelay = time.Second
)

// Connect to the broker, retrying ConnectRetries times
func (c *MQTT) Connect() (err error) {
	for attempt := 1; attempt <= ConnectRetries; attempt++ {
		token := c.client.Connect()
		if !token.WaitTimeout(time.Second) {
			c.ctx.Warn("Connecting takes longer than expected")
			token.Wait()
		}
		if err = token.Error(); err == nil {
			return nil
		}
		c.ctx.WithError(err).WithField("Attempt", attempt).Warn("Could not connect")
		if attempt < ConnectRetries {
			time.Sleep(ConnectRetryDelay)
		}
	}
	return fmt.Errorf("mqtt: could not connect: %w", err)
}

// Disconnect from MQTT. Subscription channels are closed.
func (c *MQTT) Disconnect() error {
	c.mu.Lock()
	for topic, subscription := range c.subscriptions {
		if subscription.cancel != nil {
			subscription.cancel()
		}
		delete(c.subscriptions, topic)
	}
	c.mu.Unlock()
	c.client.Disconnect(100)
	return nil
}

// Publish a message and wait until the broker acknowledged it
func (c *MQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: could not publish to %s: %w", topic, err)
	}
	return nil
}

func (c *MQTT) subscribe(topic string, handler paho.MessageHandler, cancel func()) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	wrappedHandler := func(client paho.Client, msg paho.Message) {
		if msg.Retained() {
			c.ctx.WithField("Topic", msg.Topic()).Debug("Ignore retained message")
			return
		}
		handler(client, msg)
	}
	c.subscriptions[topic] = subscription{wrappedHandler, cancel}
	return c.client.Subscribe(topic, SubscribeQoS, wrappedHandler)
}

func (c *MQTT) resubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, subscription := range c.subscriptions {
		c.client.Subscribe(topic, SubscribeQoS, subscription.handler)
	}
}

func (c *MQTT) unsubscribe(topic string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subscription, ok := c.subscriptions[topic]; ok && subscription.cancel != nil {
		subscription.cancel()
	}
	delete(c.subscriptions, topic)
	return c.client.Unsubscribe(topic)
}

// Subscribe to messages on the given topic filter. The returned channel is
// closed on Unsubscribe or Disconnect.
func (c *MQTT) Subscribe(topicFilter string) (<-chan *types.Message, error) {
	ctx := c.ctx.WithField("TopicFilter", topicFilter)
	messages := make(chan *types.Message, BufferSize)
	var closeOnce sync.Once
	var mu sync.RWMutex
	closed := false
	token := c.subscribe(topicFilter, func(_ paho.Client, msg paho.Message) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		message := &types.Message{
			Topic:    msg.Topic(),
			Payload:  msg.Payload(),
			Retained: msg.Retained(),
		}
		select {
		case messages <- message:
			ctx.WithField("Topic", msg.Topic()).WithField("Size", len(msg.Payload())).Debug("Received message")
		default:
			ctx.WithField("Topic", msg.Topic()).Warn("Could not handle message: buffer full")
		}
	}, func() {
		closeOnce.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			close(messages)
		})
	})
	token.Wait()
	return messages, token.Error()
}

// Unsubscribe from messages on the given topic filter
func (c *MQTT) Unsubscribe(topicFilter string) error {
	token := c.unsubscribe(topicFilter)
	token.Wait()
	return token.Error()
}
