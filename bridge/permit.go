// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/apex/log"
)

const (
	// DefaultPermitDuration is used when a permit request does not contain an integer number of seconds
	DefaultPermitDuration = 60
	// MaxPermitDuration is the longest a Zigbee network can be opened for joining
	MaxPermitDuration = 254
)

// PermitDuration returns the number of seconds a permit request asks for
func PermitDuration(payload interface{}) int {
	var seconds int64
	switch payload := payload.(type) {
	case json.Number:
		var err error
		seconds, err = payload.Int64()
		if err != nil {
			return DefaultPermitDuration
		}
	case int:
		seconds = int64(payload)
	case int64:
		seconds = payload
	default:
		return DefaultPermitDuration
	}
	if seconds < 0 {
		return 0
	}
	if seconds > MaxPermitDuration {
		return MaxPermitDuration
	}
	return int(seconds)
}

// permitJoin opens the network for joining and publishes the permit state.
// When requests overlap, the latest one decides when the network closes.
type permitJoin struct {
	ctx       log.Interface
	publisher *Publisher
	network   func(ctx context.Context) (zigbee.Controller, error)

	mu      sync.Mutex
	session uint64
}

func (p *permitJoin) Handle(ctx context.Context, payload interface{}) error {
	return p.Permit(ctx, PermitDuration(payload))
}

// Permit opens the network for the given number of seconds. The closed state
// is published after that time, or earlier when ctx is done.
func (p *permitJoin) Permit(ctx context.Context, seconds int) error {
	controller, err := p.network(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.session++
	session := p.session
	p.mu.Unlock()

	duration := time.Duration(seconds) * time.Second
	until := float64(time.Now().Add(duration).UnixNano()) / float64(time.Second)

	p.ctx.WithField("Duration", seconds).Info("Permitting devices to join")
	permittingGauge.Set(1)
	if err := p.publisher.Publish(TopicPermitting, map[string]interface{}{
		"status": true,
		"until":  until,
	}); err != nil {
		return err
	}

	if err := controller.PermitJoining(ctx, seconds); err != nil {
		if closeErr := p.close(session); closeErr != nil {
			p.ctx.WithError(closeErr).Warn("Could not publish closed permit state")
		}
		return fmt.Errorf("%w: permit joining: %v", ErrTransport, err)
	}

	timer := time.NewTimer(duration)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	if err := p.close(session); err != nil {
		return err
	}
	p.ctx.Info("No longer permitting devices to join")
	return nil
}

// close publishes the closed state, unless a newer session started
func (p *permitJoin) close(session uint64) error {
	p.mu.Lock()
	latest := session == p.session
	p.mu.Unlock()
	if !latest {
		p.ctx.Debug("Permit session superseded by a newer request")
		return nil
	}
	permittingGauge.Set(0)
	return p.publisher.Publish(TopicPermitting, map[string]interface{}{
		"status": false,
	})
}
