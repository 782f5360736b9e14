// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import (
	"context"

	"github.com/apex/log"
)

// Listener receives device events from a Controller. Methods are called from
// the controller's own goroutines and must not block.
type Listener interface {
	DeviceJoined(device *Device)
	DeviceInitialized(device *Device)
	DeviceLeft(device *Device)
	AttributeUpdated(device *Device, cluster *Cluster, attributeID uint16, value interface{})
}

// Controller manages the Zigbee network
type Controller interface {
	// Startup starts the network, forming a new one if autoForm is set and none exists
	Startup(ctx context.Context, autoForm bool) error
	// PermitJoining opens the network for new devices for the given number of seconds
	PermitJoining(ctx context.Context, seconds int) error
	// Devices returns the devices currently on the network
	Devices() map[EUI64]*Device
	// AddListener registers a listener for device events
	AddListener(listener Listener)
	// Shutdown stops the network
	Shutdown() error
}

// Config contains configuration for a Controller
type Config struct {
	// DevicePath is the path of the radio's serial device
	DevicePath string
	// DatabasePath is the location of the persistent network state
	DatabasePath string
}

// Factory creates a Controller
type Factory func(config Config, ctx log.Interface) (Controller, error)
