// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package dummy implements a simulated Zigbee network controller. Devices join
// through Join (or the HTTP debug API) while the network permits joining, and
// are persisted in a Store.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/apex/log"
)

var (
	// ErrNotStarted is returned when using the Controller before Startup
	ErrNotStarted = errors.New("dummy: network not started")
	// ErrNotPermitting is returned when a device tries to join a closed network
	ErrNotPermitting = errors.New("dummy: network is not permitting joins")
	// ErrUnknownDevice is returned for devices that are not on the network
	ErrUnknownDevice = errors.New("dummy: unknown device")
	// ErrUnknownEndpoint is returned for endpoints the device does not have
	ErrUnknownEndpoint = errors.New("dummy: unknown endpoint")
)

// MaxPermitDuration is the longest a network can be opened for joining, in seconds
const MaxPermitDuration = 254

// InterviewDelay is how long the simulated interview of a joined device takes
var InterviewDelay = 10 * time.Millisecond

// Controller of a simulated Zigbee network
type Controller struct {
	mu  sync.RWMutex
	ctx log.Interface

	config  zigbee.Config
	store   Store
	started bool
	stop    chan struct{}

	interviews sync.WaitGroup

	devices     map[zigbee.EUI64]*zigbee.Device
	listeners   []zigbee.Listener
	permitUntil time.Time
}

// New returns a new simulated Controller for the given configuration
func New(config zigbee.Config, ctx log.Interface) (*Controller, error) {
	store, err := NewStore(config.DatabasePath)
	if err != nil {
		return nil, err
	}
	return NewWithStore(config, store, ctx), nil
}

// NewWithStore returns a new simulated Controller that uses the given Store
func NewWithStore(config zigbee.Config, store Store, ctx log.Interface) *Controller {
	return &Controller{
		ctx:     ctx.WithField("Controller", "Dummy"),
		config:  config,
		store:   store,
		devices: make(map[zigbee.EUI64]*zigbee.Device),
	}
}

// Factory implements zigbee.Factory
func Factory(config zigbee.Config, ctx log.Interface) (zigbee.Controller, error) {
	return New(config, ctx)
}

// Startup implements zigbee.Controller. Devices in the store are restored on the network.
func (c *Controller) Startup(ctx context.Context, autoForm bool) error {
	records, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("dummy: could not load devices: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range records {
		device := zigbee.NewDevice(record.IEEE, record.NWK, c.initializer(record))
		record.apply(device)
		device.SetInitialized()
		c.devices[record.IEEE] = device
	}
	c.started = true
	c.stop = make(chan struct{})
	c.ctx.WithFields(log.Fields{
		"Device":   c.config.DevicePath,
		"Database": c.config.DatabasePath,
		"Devices":  len(records),
		"AutoForm": autoForm,
	}).Info("Network started")
	return nil
}

// PermitJoining implements zigbee.Controller
func (c *Controller) PermitJoining(ctx context.Context, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > MaxPermitDuration {
		seconds = MaxPermitDuration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	c.permitUntil = time.Now().Add(time.Duration(seconds) * time.Second)
	c.ctx.WithField("Duration", seconds).Info("Permit joining")
	return nil
}

// Permitting returns true while the network accepts new devices
func (c *Controller) Permitting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started && time.Now().Before(c.permitUntil)
}

// Devices implements zigbee.Controller
func (c *Controller) Devices() map[zigbee.EUI64]*zigbee.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	devices := make(map[zigbee.EUI64]*zigbee.Device, len(c.devices))
	for ieee, device := range c.devices {
		devices[ieee] = device
	}
	return devices
}

// AddListener implements zigbee.Controller
func (c *Controller) AddListener(listener zigbee.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Controller) getListeners() []zigbee.Listener {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]zigbee.Listener(nil), c.listeners...)
}

// Shutdown implements zigbee.Controller. Running interviews are aborted and
// waited for; no listener is called after Shutdown returns.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.permitUntil = time.Time{}
	close(c.stop)
	c.mu.Unlock()

	c.interviews.Wait()
	c.ctx.Info("Network stopped")
	return c.store.Close()
}

// interview registers a running interview. It returns false once the network
// is stopped.
func (c *Controller) interview() (stop <-chan struct{}, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil, false
	}
	c.interviews.Add(1)
	return c.stop, true
}

// initializer returns the interview of a device: after InterviewDelay the
// record is applied, persisted and the listeners are notified
func (c *Controller) initializer(record Record) func(*zigbee.Device) {
	return func(device *zigbee.Device) {
		ctx := c.ctx.WithField("IEEE", device.IEEE())
		stop, ok := c.interview()
		if !ok {
			ctx.Debug("Network stopped, skip interview")
			return
		}
		defer c.interviews.Done()
		select {
		case <-time.After(InterviewDelay):
		case <-stop:
			ctx.Debug("Interview aborted")
			return
		}
		record.apply(device)
		device.SetInitialized()
		if err := c.store.Save(recordOf(device)); err != nil {
			ctx.WithError(err).Warn("Could not persist device")
		}
		ctx.Debug("Device initialized")
		select {
		case <-stop:
			return
		default:
		}
		for _, listener := range c.getListeners() {
			listener.DeviceInitialized(device)
		}
	}
}

// Join simulates a device joining the network. A device that is already on
// the network rejoins with a new network address.
func (c *Controller) Join(record Record) (*zigbee.Device, error) {
	if !c.Permitting() {
		return nil, ErrNotPermitting
	}
	c.mu.Lock()
	device, rejoin := c.devices[record.IEEE]
	if rejoin {
		device.SetNWK(record.NWK)
	} else {
		device = zigbee.NewDevice(record.IEEE, record.NWK, c.initializer(record))
		c.devices[record.IEEE] = device
	}
	c.mu.Unlock()

	c.ctx.WithFields(log.Fields{
		"IEEE":   record.IEEE,
		"NWK":    fmt.Sprintf("0x%04x", uint16(record.NWK)),
		"Rejoin": rejoin,
	}).Info("Device joined")
	for _, listener := range c.getListeners() {
		listener.DeviceJoined(device)
	}
	return device, nil
}

// Leave simulates a device leaving the network
func (c *Controller) Leave(ieee zigbee.EUI64) error {
	c.mu.Lock()
	device, ok := c.devices[ieee]
	delete(c.devices, ieee)
	c.mu.Unlock()
	if !ok {
		return ErrUnknownDevice
	}
	if err := c.store.Delete(ieee); err != nil && err != ErrDeviceNotFound {
		c.ctx.WithField("IEEE", ieee).WithError(err).Warn("Could not delete device")
	}
	c.ctx.WithField("IEEE", ieee).Info("Device left")
	for _, listener := range c.getListeners() {
		listener.DeviceLeft(device)
	}
	return nil
}

// UpdateAttribute simulates an attribute report of a device
func (c *Controller) UpdateAttribute(ieee zigbee.EUI64, endpointID uint8, clusterID zigbee.ClusterID, attributeID uint16, value interface{}) error {
	c.mu.RLock()
	device, ok := c.devices[ieee]
	c.mu.RUnlock()
	if !ok {
		return ErrUnknownDevice
	}
	if device.Endpoint(endpointID) == nil {
		return ErrUnknownEndpoint
	}
	cluster := zigbee.NewCluster(endpointID, clusterID)
	c.ctx.WithFields(log.Fields{
		"IEEE":      ieee,
		"Cluster":   cluster.Name,
		"Attribute": attributeID,
	}).Debug("Attribute updated")
	for _, listener := range c.getListeners() {
		listener.AttributeUpdated(device, cluster, attributeID, value)
	}
	return nil
}
