// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import (
	"sort"
	"sync"

	"github.com/deckarep/golang-set"
)

// Profile IDs
const (
	ProfileHA  uint16 = 0x0104
	ProfileZLL uint16 = 0xc05e
)

// Endpoint is an application endpoint of a Device
type Endpoint struct {
	mu sync.RWMutex

	device     *Device
	id         uint8
	profileID  uint16
	deviceType uint16
	status     EndpointStatus

	// Sets of ClusterID and GroupID
	inClusters  mapset.Set
	outClusters mapset.Set
	memberOf    mapset.Set
}

func newEndpoint(device *Device, id uint8) *Endpoint {
	return &Endpoint{
		device:      device,
		id:          id,
		inClusters:  mapset.NewSet(),
		outClusters: mapset.NewSet(),
		memberOf:    mapset.NewSet(),
	}
}

// ID of the endpoint
func (e *Endpoint) ID() uint8 {
	return e.id
}

// Device the endpoint belongs to
func (e *Endpoint) Device() *Device {
	return e.device
}

// SetDescriptor sets the simple descriptor of the endpoint and marks it as initialized
func (e *Endpoint) SetDescriptor(profileID, deviceType uint16, in, out []ClusterID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profileID = profileID
	e.deviceType = deviceType
	e.inClusters.Clear()
	for _, id := range in {
		e.inClusters.Add(id)
	}
	e.outClusters.Clear()
	for _, id := range out {
		e.outClusters.Add(id)
	}
	e.status = EndpointZDOInit
}

// ProfileID of the endpoint
func (e *Endpoint) ProfileID() uint16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profileID
}

// DeviceType of the endpoint
func (e *Endpoint) DeviceType() uint16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deviceType
}

// Status of the endpoint interview
func (e *Endpoint) Status() EndpointStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// InClusters returns the server clusters of the endpoint
func (e *Endpoint) InClusters() []ClusterID {
	return clusterIDs(e.inClusters)
}

// OutClusters returns the client clusters of the endpoint
func (e *Endpoint) OutClusters() []ClusterID {
	return clusterIDs(e.outClusters)
}

// HasInCluster returns true if the endpoint has the given server cluster
func (e *Endpoint) HasInCluster(id ClusterID) bool {
	return e.inClusters.Contains(id)
}

// AddGroup adds the endpoint to a group
func (e *Endpoint) AddGroup(id GroupID) {
	e.memberOf.Add(id)
}

// RemoveGroup removes the endpoint from a group
func (e *Endpoint) RemoveGroup(id GroupID) {
	e.memberOf.Remove(id)
}

// Groups returns the groups the endpoint is a member of
func (e *Endpoint) Groups() []GroupID {
	items := e.memberOf.ToSlice()
	ids := make([]GroupID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(GroupID))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Attribute returns the externally visible attribute with the given name
func (e *Endpoint) Attribute(name string) (interface{}, bool) {
	switch name {
	case "endpoint_id":
		return e.id, true
	case "profile_id":
		return e.ProfileID(), true
	case "device_type":
		return e.DeviceType(), true
	case "status":
		return e.Status(), true
	case "manufacturer":
		return e.device.Manufacturer(), true
	case "manufacturer_id":
		return e.device.ManufacturerID(), true
	case "model":
		return e.device.Model(), true
	case "unique_id":
		return []interface{}{e.device.IEEE(), e.id}, true
	case "in_clusters":
		return e.inClusters.Clone(), true
	case "out_clusters":
		return e.outClusters.Clone(), true
	case "member_of":
		return e.memberOf.Clone(), true
	}
	return nil, false
}

func clusterIDs(set mapset.Set) []ClusterID {
	items := set.ToSlice()
	ids := make([]ClusterID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(ClusterID))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
