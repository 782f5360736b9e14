// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import "fmt"

// Cluster identifies a cluster on a specific endpoint
type Cluster struct {
	ID          ClusterID `json:"cluster_id"`
	Name        string    `json:"name"`
	EPAttribute string    `json:"ep_attribute"`
	EndpointID  uint8     `json:"endpoint_id"`
}

type clusterInfo struct {
	name        string
	epAttribute string
}

var knownClusters = map[ClusterID]clusterInfo{
	0x0000: {"Basic", "basic"},
	0x0001: {"Power Configuration", "power"},
	0x0003: {"Identify", "identify"},
	0x0004: {"Groups", "groups"},
	0x0005: {"Scenes", "scenes"},
	0x0006: {"On/Off", "on_off"},
	0x0008: {"Level control", "level"},
	0x0019: {"Ota", "ota"},
	0x0300: {"Color Control", "light_color"},
	0x0400: {"Illuminance Measurement", "illuminance"},
	0x0402: {"Temperature Measurement", "temperature"},
	0x0403: {"Pressure Measurement", "pressure"},
	0x0405: {"Relative Humidity Measurement", "humidity"},
	0x0406: {"Occupancy Sensing", "occupancy"},
	0x0500: {"IAS Zone", "ias_zone"},
	0x0702: {"Metering", "smartenergy_metering"},
	0x0b04: {"Electrical Measurement", "electrical_measurement"},
}

// NewCluster returns the Cluster with the given ID on the given endpoint
func NewCluster(endpointID uint8, id ClusterID) *Cluster {
	cluster := &Cluster{ID: id, EndpointID: endpointID}
	if info, ok := knownClusters[id]; ok {
		cluster.Name, cluster.EPAttribute = info.name, info.epAttribute
	} else {
		cluster.Name = fmt.Sprintf("Unknown cluster 0x%04x", uint16(id))
		cluster.EPAttribute = fmt.Sprintf("cluster_0x%04x", uint16(id))
	}
	return cluster
}
