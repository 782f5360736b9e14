// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import (
	"sync"
)

// ZDO is the Zigbee Device Object living on endpoint 0 of every device
type ZDO struct {
	device *Device
}

// Device is a node on the network. Devices are owned by the network controller;
// all accessors are safe for concurrent use.
type Device struct {
	mu sync.RWMutex

	ieee              EUI64
	nwk               NWK
	manufacturer      string
	manufacturerID    *uint16
	model             string
	skipConfiguration bool
	relays            []NWK
	nodeDesc          *NodeDescriptor
	status            DeviceStatus
	initializing      bool

	zdo       *ZDO
	endpoints map[uint8]*Endpoint

	initialize func(*Device)
}

// NewDevice returns a new Device. The initialize func is called in its own
// goroutine by ScheduleInitialize.
func NewDevice(ieee EUI64, nwk NWK, initialize func(*Device)) *Device {
	d := &Device{
		ieee:       ieee,
		nwk:        nwk,
		endpoints:  make(map[uint8]*Endpoint),
		initialize: initialize,
	}
	d.zdo = &ZDO{device: d}
	return d
}

// IEEE address of the device
func (d *Device) IEEE() EUI64 {
	return d.ieee
}

// NWK address of the device
func (d *Device) NWK() NWK {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nwk
}

// SetNWK updates the network address after a rejoin
func (d *Device) SetNWK(nwk NWK) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nwk = nwk
}

// Manufacturer of the device
func (d *Device) Manufacturer() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.manufacturer
}

// Model of the device
func (d *Device) Model() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model
}

// ManufacturerID of the device, nil if unknown
func (d *Device) ManufacturerID() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.manufacturerID == nil {
		return nil
	}
	id := *d.manufacturerID
	return &id
}

// SetInfo sets the basic cluster information of the device
func (d *Device) SetInfo(manufacturer string, manufacturerID *uint16, model string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manufacturer = manufacturer
	d.model = model
	d.manufacturerID = nil
	if manufacturerID != nil {
		id := *manufacturerID
		d.manufacturerID = &id
	}
}

// SetSkipConfiguration marks the device as not needing configuration
func (d *Device) SetSkipConfiguration(skip bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skipConfiguration = skip
}

// SetRelays sets the source route to the device
func (d *Device) SetRelays(relays []NWK) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.relays = append([]NWK(nil), relays...)
}

// NodeDescriptor of the device, nil if not yet known
func (d *Device) NodeDescriptor() *NodeDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.nodeDesc == nil {
		return nil
	}
	desc := *d.nodeDesc
	return &desc
}

// SetNodeDescriptor sets the node descriptor of the device
func (d *Device) SetNodeDescriptor(desc NodeDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodeDesc = &desc
}

// AddEndpoint adds (or replaces) an endpoint of the device
func (d *Device) AddEndpoint(id uint8) *Endpoint {
	ep := newEndpoint(d, id)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints[id] = ep
	return ep
}

// Endpoint returns the endpoint with the given ID, or nil
func (d *Device) Endpoint(id uint8) *Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.endpoints[id]
}

// Endpoints returns all application endpoints of the device
func (d *Device) Endpoints() map[uint8]*Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	endpoints := make(map[uint8]*Endpoint, len(d.endpoints))
	for id, ep := range d.endpoints {
		endpoints[id] = ep
	}
	return endpoints
}

// Status of the device interview
func (d *Device) Status() DeviceStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Initializing returns true while the interview of the device is running
func (d *Device) Initializing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initializing
}

// ScheduleInitialize starts the interview of the device in the background.
// It is a no-op when an interview is already running.
func (d *Device) ScheduleInitialize() {
	d.mu.Lock()
	if d.initializing || d.initialize == nil {
		d.mu.Unlock()
		return
	}
	d.initializing = true
	d.mu.Unlock()
	go d.initialize(d)
}

// SetInitialized marks the interview of the device as done
func (d *Device) SetInitialized() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initializing = false
	d.status = DeviceEndpointsInit
}

// Attribute returns the externally visible attribute with the given name
func (d *Device) Attribute(name string) (interface{}, bool) {
	switch name {
	case "ieee":
		return d.ieee, true
	case "nwk":
		return d.NWK(), true
	case "manufacturer":
		return d.Manufacturer(), true
	case "manufacturer_id":
		return d.ManufacturerID(), true
	case "model":
		return d.Model(), true
	case "status":
		return d.Status(), true
	case "node_desc":
		return d.NodeDescriptor(), true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch name {
	case "skip_configuration":
		return d.skipConfiguration, true
	case "relays":
		if d.relays == nil {
			return nil, true
		}
		return append([]NWK(nil), d.relays...), true
	case "endpoints":
		endpoints := make(map[uint8]interface{}, len(d.endpoints)+1)
		endpoints[0] = d.zdo
		for id, ep := range d.endpoints {
			endpoints[id] = ep
		}
		return endpoints, true
	}
	return nil, false
}
