// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"sort"

	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/apex/log"
)

// events turns the callbacks of the network controller into publications.
// Callbacks only start tasks; they never wait for the broker.
type events struct {
	ctx       log.Interface
	tasks     *Tasks
	publisher *Publisher
	devices   func() map[zigbee.EUI64]*zigbee.Device
}

// deviceList returns the current devices, ordered by IEEE address
func deviceList(devices map[zigbee.EUI64]*zigbee.Device) []*zigbee.Device {
	list := make([]*zigbee.Device, 0, len(devices))
	for _, device := range devices {
		list = append(list, device)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].IEEE().String() < list[j].IEEE().String()
	})
	return list
}

func (e *events) publishDevices() error {
	return e.publisher.Publish(TopicDevices, deviceList(e.devices()))
}

func (e *events) DeviceJoined(device *zigbee.Device) {
	e.ctx.WithField("IEEE", device.IEEE()).Info("Device joined")
	if !device.Initializing() {
		device.ScheduleInitialize()
	}
	e.tasks.Go(TopicDeviceJoined, func() error {
		return e.publisher.Publish(TopicDeviceJoined, map[string]interface{}{"device": device})
	})
}

func (e *events) DeviceInitialized(device *zigbee.Device) {
	e.ctx.WithField("IEEE", device.IEEE()).Info("Device initialized")
	e.tasks.Go(TopicDeviceInitialized, func() error {
		if err := e.publisher.Publish(TopicDeviceInitialized, map[string]interface{}{"device": device}); err != nil {
			return err
		}
		return e.publishDevices()
	})
}

func (e *events) DeviceLeft(device *zigbee.Device) {
	e.ctx.WithField("IEEE", device.IEEE()).Info("Device left")
	e.tasks.Go(TopicDeviceLeft, func() error {
		if err := e.publisher.Publish(TopicDeviceLeft, map[string]interface{}{"device": device}); err != nil {
			return err
		}
		return e.publishDevices()
	})
}

func (e *events) AttributeUpdated(device *zigbee.Device, cluster *zigbee.Cluster, attributeID uint16, value interface{}) {
	e.tasks.Go(TopicAttributeUpdated, func() error {
		return e.publisher.Publish(TopicAttributeUpdated, map[string]interface{}{
			"device":       device,
			"cluster":      cluster,
			"attribute_id": attributeID,
			"value":        value,
		})
	})
}
