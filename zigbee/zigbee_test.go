// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEUI64(t *testing.T) {
	Convey("Given an EUI64 in text form", t, func() {
		text := "00:0d:6f:00:0a:90:69:e7"

		Convey("When parsing it", func() {
			eui, err := ParseEUI64(text)
			Convey("There should be no error", func() {
				So(err, ShouldBeNil)
			})
			Convey("It should have the right bytes", func() {
				So(eui, ShouldResemble, EUI64{0x00, 0x0d, 0x6f, 0x00, 0x0a, 0x90, 0x69, 0xe7})
			})
			Convey("It should format back to the same text", func() {
				So(eui.String(), ShouldEqual, text)
			})
		})

		Convey("Other separators should be accepted", func() {
			a, err := ParseEUI64("00-0D-6F-00-0A-90-69-E7")
			So(err, ShouldBeNil)
			b, err := ParseEUI64("000d6f000a9069e7")
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("Invalid input should fail", func() {
			_, err := ParseEUI64("00:0d:6f")
			So(err, ShouldNotBeNil)
			_, err = ParseEUI64("zz:0d:6f:00:0a:90:69:e7")
			So(err, ShouldNotBeNil)
		})

		Convey("It should round-trip through UnmarshalText", func() {
			var eui EUI64
			So(eui.UnmarshalText([]byte(text)), ShouldBeNil)
			out, err := eui.MarshalText()
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, text)
		})
	})
}

func TestNodeDescriptor(t *testing.T) {
	Convey("Given the node descriptor of a sleepy end device", t, func() {
		desc := NodeDescriptor{Byte1: 0x02, MACCapabilityFlags: 0x80}

		So(desc.LogicalType(), ShouldEqual, EndDevice)
		So(desc.LogicalType().String(), ShouldEqual, "EndDevice")
		So(desc.IsEndDevice(), ShouldBeTrue)
		So(desc.IsRouter(), ShouldBeFalse)
		So(desc.IsMainsPowered(), ShouldBeFalse)
		So(desc.IsReceiverOnWhenIdle(), ShouldBeFalse)
		So(desc.AllocateAddress(), ShouldBeTrue)
		So(desc.IsValid(), ShouldBeTrue)

		Convey("All whitelisted attributes should be available", func() {
			for _, field := range NodeDescriptorFields {
				_, ok := desc.Attribute(field)
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestDevice(t *testing.T) {
	Convey("Given a new Device", t, func() {
		initialized := make(chan *Device, 2)
		device := NewDevice(EUI64{1, 2, 3, 4, 5, 6, 7, 8}, 0x1234, func(d *Device) {
			d.SetInfo("Philips", nil, "LCT001")
			d.SetInitialized()
			initialized <- d
		})

		Convey("It should not be initializing", func() {
			So(device.Initializing(), ShouldBeFalse)
			So(device.Status(), ShouldEqual, DeviceNew)
		})

		Convey("All whitelisted attributes should be available", func() {
			for _, field := range DeviceFields {
				_, ok := device.Attribute(field)
				So(ok, ShouldBeTrue)
			}
		})

		Convey("The ZDO should be on endpoint 0", func() {
			endpoints, _ := device.Attribute("endpoints")
			So(endpoints.(map[uint8]interface{})[0], ShouldHaveSameTypeAs, &ZDO{})
		})

		Convey("When scheduling the initialization", func() {
			device.ScheduleInitialize()
			device.ScheduleInitialize()

			Convey("The initializer should run once", func() {
				select {
				case <-time.After(time.Second):
					So("Timeout Exceeded", ShouldBeFalse)
				case d := <-initialized:
					So(d, ShouldEqual, device)
				}
				So(device.Model(), ShouldEqual, "LCT001")
				So(device.Status(), ShouldEqual, DeviceEndpointsInit)
				select {
				case <-initialized:
					So("Initialized twice", ShouldBeFalse)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})

		Convey("When adding an endpoint", func() {
			ep := device.AddEndpoint(11)
			ep.SetDescriptor(ProfileZLL, 0x0210, []ClusterID{0x0300, 0x0006}, nil)

			Convey("It should be found on the device", func() {
				So(device.Endpoint(11), ShouldEqual, ep)
				So(device.Endpoints(), ShouldHaveLength, 1)
			})
			Convey("Its clusters should be sorted", func() {
				So(ep.InClusters(), ShouldResemble, []ClusterID{0x0006, 0x0300})
				So(ep.HasInCluster(0x0300), ShouldBeTrue)
				So(ep.OutClusters(), ShouldBeEmpty)
			})
			Convey("All whitelisted attributes should be available", func() {
				for _, field := range EndpointFields {
					_, ok := ep.Attribute(field)
					So(ok, ShouldBeTrue)
				}
			})
		})
	})
}

func TestCluster(t *testing.T) {
	Convey("Known clusters should have a name", t, func() {
		cluster := NewCluster(1, 0x0402)
		So(cluster.Name, ShouldEqual, "Temperature Measurement")
		So(cluster.EPAttribute, ShouldEqual, "temperature")
		So(cluster.EndpointID, ShouldEqual, uint8(1))
	})
	Convey("Unknown clusters should get a generated name", t, func() {
		cluster := NewCluster(2, 0xfc00)
		So(cluster.Name, ShouldEqual, "Unknown cluster 0xfc00")
	})
}
