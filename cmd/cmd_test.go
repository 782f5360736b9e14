// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/TheThingsNetwork/zigbee-bridge/status"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee/dummy"
	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSignalContext(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		var logs bytes.Buffer
		ctx = &log.Logger{
			Handler: text.New(&logs),
			Level:   log.DebugLevel,
		}

		Convey("When a termination signal is received", func() {
			sigCtx, interrupted, cancel := signalContext(context.Background())
			defer cancel()
			So(syscall.Kill(os.Getpid(), syscall.SIGTERM), ShouldBeNil)

			Convey("The context should be cancelled", func() {
				select {
				case <-sigCtx.Done():
				case <-time.After(time.Second):
					So("Timeout Exceeded", ShouldBeFalse)
				}
				So(interrupted(), ShouldEqual, syscall.SIGTERM)
			})
		})

		Convey("When the context is cancelled without a signal", func() {
			sigCtx, interrupted, cancel := signalContext(context.Background())
			cancel()
			<-sigCtx.Done()
			Convey("No signal should be reported", func() {
				So(interrupted(), ShouldBeNil)
			})
		})
	})
}

func TestNetworkFactory(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		var logs bytes.Buffer
		logCtx := &log.Logger{
			Handler: text.New(&logs),
			Level:   log.DebugLevel,
		}
		defer func() {
			if logs.Len() > 0 {
				c.Printf("\n%s", logs.String())
			}
		}()

		config := zigbee.Config{DevicePath: "/dev/ttyUSB1", DatabasePath: dummy.MemoryDatabase}

		Convey("When there is no status server", func() {
			factory, closeNetwork := networkFactory(nil)
			controller, err := factory(config, logCtx)
			Convey("It should create a simulated network", func() {
				So(err, ShouldBeNil)
				So(controller, ShouldHaveSameTypeAs, &dummy.Controller{})
				So(closeNetwork, ShouldNotPanic)
			})
		})

		Convey("When there is a status server", func() {
			statusServer := status.New(logCtx)
			factory, closeNetwork := networkFactory(statusServer)
			_, err := factory(config, logCtx)
			So(err, ShouldBeNil)

			Convey("The debug API should be mounted on it", func() {
				rec := httptest.NewRecorder()
				statusServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/network/devices", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "[]")
			})

			Convey("The debug API should be closed by the returned func", func() {
				So(closeNetwork, ShouldNotPanic)
				So(closeNetwork, ShouldNotPanic)
			})
		})
	})
}
