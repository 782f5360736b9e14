// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/TheThingsNetwork/ttn/utils/random"
	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

var host string

func init() {
	host = os.Getenv("MQTT_ADDRESS")
}

func TestMQTTNotConnected(t *testing.T) {
	Convey("Given an MQTT that is not connected", t, func() {
		mqtt, err := New(Config{Brokers: []string{"tcp://localhost:1883"}}, log.Log)
		So(err, ShouldBeNil)

		Convey("Publishing should fail", func() {
			err := mqtt.Publish("zigbee/test", []byte("{}"), PublishQoS, false)
			So(err, ShouldEqual, ErrNotConnected)
		})
	})
}

func TestMQTTWithoutBrokers(t *testing.T) {
	Convey("Creating an MQTT without brokers should fail", t, func() {
		_, err := New(Config{}, log.Log)
		So(err, ShouldNotBeNil)
	})
}

func TestMQTT(t *testing.T) {
	if host == "" {
		t.Skip("MQTT_ADDRESS not set")
	}

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

		prefix := fmt.Sprintf("zigbee-test-%s", random.String(8))

		Convey("When calling New", func() {
			mqtt, err := New(Config{
				Brokers: []string{fmt.Sprintf("tcp://%s", host)},
			}, ctx)
			Convey("There should be no error", func() {
				So(err, ShouldBeNil)
			})
			Convey("There should be an MQTT", func() {
				So(mqtt, ShouldNotBeNil)
			})

			Convey("When calling Connect on MQTT", func() {
				err := mqtt.Connect()
				Convey("There should be no error", func() {
					So(err, ShouldBeNil)
				})
				Convey("We can also call Disconnect", func() {
					mqtt.Disconnect()
				})

				Convey("When subscribing to a topic", func() {
					messages, err := mqtt.Subscribe(prefix + "/+")
					Convey("There should be no error", func() {
						So(err, ShouldBeNil)
					})
					Convey("When publishing a message", func() {
						err := mqtt.Publish(prefix+"/permit", []byte("10"), PublishQoS, false)
						Convey("There should be no error", func() {
							So(err, ShouldBeNil)
						})
						Convey("There should be a corresponding Message in the channel", func() {
							select {
							case <-time.After(time.Second):
								So("Timeout Exceeded", ShouldBeFalse)
							case msg := <-messages:
								So(msg.Topic, ShouldEqual, prefix+"/permit")
								So(string(msg.Payload), ShouldEqual, "10")
								So(msg.Retained, ShouldBeFalse)
							}
						})
					})
					Convey("When unsubscribing from the topic", func() {
						err := mqtt.Unsubscribe(prefix + "/+")
						Convey("There should be no error", func() {
							So(err, ShouldBeNil)
						})
						Convey("The channel should be closed", func() {
							for range messages {
							}
						})
					})
				})

				Convey("When a retained message exists before subscribing", func() {
					topic := prefix + "/retained"
					So(mqtt.Publish(topic, []byte("60"), PublishQoS, true), ShouldBeNil)
					defer mqtt.Publish(topic, nil, PublishQoS, true)

					messages, err := mqtt.Subscribe(topic)
					So(err, ShouldBeNil)

					Convey("It should not be delivered", func() {
						select {
						case msg := <-messages:
							So(msg, ShouldBeNil)
						case <-time.After(200 * time.Millisecond):
						}
					})
				})
			})
		})
	})
}
