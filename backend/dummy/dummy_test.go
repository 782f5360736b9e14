// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDummy(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		var logs bytes.Buffer
		ctx := &log.Logger{
			Handler: text.New(&logs),
			Level:   log.DebugLevel,
		}
		defer func() {
			if logs.Len() > 0 {
				c.Printf("\n%s", logs.String())
			}
		}()

		Convey("When creating a new Dummy", func() {
			dummy := New(ctx)

			Convey("Publishing before Connect should fail", func() {
				err := dummy.Publish("zigbee/bridge/state", []byte("online"), 1, true)
				So(err, ShouldEqual, ErrNotConnected)
			})

			Convey("When calling Connect on Dummy", func() {
				err := dummy.Connect()
				Convey("There should be no error", func() {
					So(err, ShouldBeNil)
					So(dummy.Connected(), ShouldBeTrue)
				})

				Convey("When subscribing to a topic filter", func() {
					messages, err := dummy.Subscribe("zigbee/+")
					Convey("There should be no error", func() {
						So(err, ShouldBeNil)
					})
					Convey("When injecting a message", func() {
						dummy.Inject("zigbee/permit", []byte("10"))
						Convey("There should be a corresponding Message in the channel", func() {
							select {
							case <-time.After(time.Second):
								So("Timeout Exceeded", ShouldBeFalse)
							case msg := <-messages:
								So(msg.Topic, ShouldEqual, "zigbee/permit")
								So(string(msg.Payload), ShouldEqual, "10")
							}
						})
					})
					Convey("Messages on other topics should not be delivered", func() {
						dummy.Inject("zigbee/bridge/devices", []byte("{}"))
						select {
						case msg := <-messages:
							So(msg, ShouldBeNil)
						default:
						}
					})
					Convey("When unsubscribing", func() {
						err := dummy.Unsubscribe("zigbee/+")
						Convey("There should be no error", func() {
							So(err, ShouldBeNil)
						})
						Convey("The channel should be closed", func() {
							for range messages {
							}
						})
					})
					Convey("When disconnecting", func() {
						dummy.Disconnect()
						Convey("The channel should be closed", func() {
							for range messages {
							}
						})
					})
				})

				Convey("When publishing a retained message", func() {
					err := dummy.Publish("zigbee/bridge/state", []byte("online"), 1, true)
					So(err, ShouldBeNil)

					Convey("It should be recorded", func() {
						published := dummy.PublishedTo("zigbee/bridge/state")
						So(published, ShouldHaveLength, 1)
						So(published[0].QoS, ShouldEqual, byte(1))
						So(published[0].Retained, ShouldBeTrue)
					})
					Convey("It should be retained", func() {
						payload, ok := dummy.Retained("zigbee/bridge/state")
						So(ok, ShouldBeTrue)
						So(string(payload), ShouldEqual, "online")
					})
					Convey("It should not be delivered to new subscribers", func() {
						messages, _ := dummy.Subscribe("zigbee/#")
						dummy.Inject("zigbee/permit", []byte("5"))
						msg := <-messages
						So(msg.Topic, ShouldEqual, "zigbee/permit")
						So(msg.Retained, ShouldBeFalse)
					})
					Convey("An empty retained payload should clear it", func() {
						dummy.Publish("zigbee/bridge/state", nil, 1, true)
						_, ok := dummy.Retained("zigbee/bridge/state")
						So(ok, ShouldBeFalse)
					})
				})

				Convey("When publications are made to fail", func() {
					failure := errors.New("broker unavailable")
					dummy.FailPublish(failure)
					Convey("Publish should return the failure", func() {
						So(dummy.Publish("zigbee/x", nil, 1, false), ShouldEqual, failure)
						So(dummy.Published(), ShouldBeEmpty)
					})
				})
			})
		})
	})
}

func TestMatch(t *testing.T) {
	Convey("Topic filters should match like MQTT", t, func() {
		So(Match("zigbee/permit", "zigbee/permit"), ShouldBeTrue)
		So(Match("zigbee/+", "zigbee/permit"), ShouldBeTrue)
		So(Match("zigbee/+", "zigbee/bridge/devices"), ShouldBeFalse)
		So(Match("zigbee/#", "zigbee/bridge/devices"), ShouldBeTrue)
		So(Match("zigbee/#", "zigbee"), ShouldBeTrue)
		So(Match("zigbee/permit", "zigbee"), ShouldBeFalse)
		So(Match("zigbee", "zigbee/permit"), ShouldBeFalse)
	})
}
