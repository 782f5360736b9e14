// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/TheThingsNetwork/zigbee-bridge/types"
	"github.com/apex/log"
)

// Handler handles the decoded JSON payload of an inbound message
type Handler func(ctx context.Context, payload interface{}) error

const defaultHandlerName = "default"

func defaultHandler(context.Context, interface{}) error { return nil }

// dispatcher decodes inbound messages and starts a task for the handler of their topic
type dispatcher struct {
	ctx      log.Interface
	tasks    *Tasks
	handlers map[string]Handler
}

// Decode the JSON payload of a message. Numbers are kept as json.Number.
func Decode(payload []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedMessage)
	}
	return v, nil
}

// Run handles messages until ctx is done. The message stream closing before
// that, or a panic while handling a message, is returned as an error.
func (d *dispatcher) Run(ctx context.Context, messages <-chan *types.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.ctx.WithField("Panic", r).Errorf("Message loop panicked\n%s", debug.Stack())
			err = fmt.Errorf("bridge: message loop panicked: %v", r)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				d.ctx.Warn("Message loop ended")
				return ErrMessageStreamClosed
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, msg *types.Message) {
	msgCtx := d.ctx.WithField("Topic", msg.Topic)
	payload, err := Decode(msg.Payload)
	if err != nil {
		malformedCounter.Inc()
		msgCtx.WithField("Payload", string(msg.Payload)).WithError(err).Error("Payload is not valid JSON")
		return
	}
	msgCtx.WithField("Payload", string(msg.Payload)).Info("Received")

	name, handler := msg.Topic, d.handlers[msg.Topic]
	if handler == nil {
		name, handler = defaultHandlerName, defaultHandler
	}
	receivedCounter.WithLabelValues(name).Inc()
	d.tasks.Go(name, func() error {
		return handler(ctx, payload)
	})
}
