// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import "github.com/TheThingsNetwork/zigbee-bridge/zigbee"

// Record describes a device of the simulated network, as it is persisted and
// as it is submitted to join the network
type Record struct {
	IEEE           zigbee.EUI64           `yaml:"ieee" json:"ieee"`
	NWK            zigbee.NWK             `yaml:"nwk" json:"nwk"`
	Manufacturer   string                 `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	ManufacturerID *uint16                `yaml:"manufacturer_id,omitempty" json:"manufacturer_id,omitempty"`
	Model          string                 `yaml:"model,omitempty" json:"model,omitempty"`
	NodeDescriptor *zigbee.NodeDescriptor `yaml:"node_desc,omitempty" json:"node_desc,omitempty"`
	Endpoints      []EndpointRecord       `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
}

// EndpointRecord describes an application endpoint of a Record
type EndpointRecord struct {
	ID          uint8              `yaml:"id" json:"id"`
	ProfileID   uint16             `yaml:"profile_id" json:"profile_id"`
	DeviceType  uint16             `yaml:"device_type" json:"device_type"`
	InClusters  []zigbee.ClusterID `yaml:"in_clusters,omitempty" json:"in_clusters,omitempty"`
	OutClusters []zigbee.ClusterID `yaml:"out_clusters,omitempty" json:"out_clusters,omitempty"`
	Groups      []zigbee.GroupID   `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// apply the interview results of the record to the device
func (r Record) apply(device *zigbee.Device) {
	device.SetInfo(r.Manufacturer, r.ManufacturerID, r.Model)
	if r.NodeDescriptor != nil {
		device.SetNodeDescriptor(*r.NodeDescriptor)
	}
	for _, epRecord := range r.Endpoints {
		ep := device.AddEndpoint(epRecord.ID)
		ep.SetDescriptor(epRecord.ProfileID, epRecord.DeviceType, epRecord.InClusters, epRecord.OutClusters)
		for _, group := range epRecord.Groups {
			ep.AddGroup(group)
		}
	}
}

func recordOf(device *zigbee.Device) Record {
	record := Record{
		IEEE:           device.IEEE(),
		NWK:            device.NWK(),
		Manufacturer:   device.Manufacturer(),
		ManufacturerID: device.ManufacturerID(),
		Model:          device.Model(),
		NodeDescriptor: device.NodeDescriptor(),
	}
	endpoints := device.Endpoints()
	for id := 1; id <= 255; id++ {
		ep, ok := endpoints[uint8(id)]
		if !ok {
			continue
		}
		record.Endpoints = append(record.Endpoints, EndpointRecord{
			ID:          ep.ID(),
			ProfileID:   ep.ProfileID(),
			DeviceType:  ep.DeviceType(),
			InClusters:  ep.InClusters(),
			OutClusters: ep.OutClusters(),
			Groups:      ep.Groups(),
		})
	}
	return record
}
