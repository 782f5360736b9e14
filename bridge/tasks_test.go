// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTasks(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		logs := new(logBuffer)
		ctx := &log.Logger{
			Handler: text.New(logs),
			Level:   log.DebugLevel,
		}
		defer func() {
			if logs.Len() > 0 {
				c.Printf("\n%s", logs.String())
			}
		}()

		tasks := NewTasks(ctx)

		Convey("Waiting without tasks should return immediately", func() {
			So(tasks.Wait(), ShouldBeNil)
		})

		Convey("When starting a number of tasks", func() {
			var completed int32
			for i := 0; i < 10; i++ {
				tasks.Go("sleep", func() error {
					time.Sleep(10 * time.Millisecond)
					atomic.AddInt32(&completed, 1)
					return nil
				})
			}
			So(tasks.Len(), ShouldBeGreaterThan, 0)

			Convey("Wait should return after all of them completed", func() {
				So(tasks.Wait(), ShouldBeNil)
				So(atomic.LoadInt32(&completed), ShouldEqual, 10)
				So(tasks.Len(), ShouldEqual, 0)
			})
		})

		Convey("Tasks started while waiting should be waited for", func() {
			var completed int32
			tasks.Go("parent", func() error {
				time.Sleep(10 * time.Millisecond)
				tasks.Go("child", func() error {
					time.Sleep(20 * time.Millisecond)
					atomic.AddInt32(&completed, 1)
					return nil
				})
				return nil
			})
			So(tasks.Wait(), ShouldBeNil)
			So(atomic.LoadInt32(&completed), ShouldEqual, 1)
		})

		Convey("Tasks that already completed should not block Wait", func() {
			tasks.Go("quick", func() error { return nil })
			time.Sleep(10 * time.Millisecond)
			So(tasks.Wait(), ShouldBeNil)
		})

		Convey("Failing tasks should not affect their siblings", func() {
			var completed int32
			tasks.Go("error", func() error { return errors.New("no luck") })
			tasks.Go("panic", func() error { panic("oops") })
			tasks.Go("ok", func() error {
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&completed, 1)
				return nil
			})
			err := tasks.Wait()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "2 tasks failed")
			So(atomic.LoadInt32(&completed), ShouldEqual, 1)
			So(logs.String(), ShouldContainSubstring, "no luck")
			So(logs.String(), ShouldContainSubstring, "Task panicked")

			Convey("The failures should be reported only once", func() {
				So(tasks.Wait(), ShouldBeNil)
			})
		})
	})
}
