// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatusServer(t *testing.T) {
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

		s := New(ctx)

		get := func(path string, header ...string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if len(header) == 2 {
				req.Header.Set(header[0], header[1])
			}
			s.ServeHTTP(rec, req)
			return rec
		}

		Convey("When requesting the metrics", func() {
			rec := get("/metrics")
			Convey("They should be served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "go_goroutines")
			})
		})

		Convey("When access keys are added", func() {
			s.AddAccessKey("secret")
			Convey("The metrics should not be served without a key", func() {
				So(get("/metrics").Code, ShouldEqual, http.StatusUnauthorized)
				So(get("/metrics", "Authorization", "Key other").Code, ShouldEqual, http.StatusUnauthorized)
			})
			Convey("The metrics should be served with a key", func() {
				So(get("/metrics", "Authorization", "Key secret").Code, ShouldEqual, http.StatusOK)
			})
			Convey("The health should still be public", func() {
				So(get("/healthz").Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When requesting the health", func() {
			ready := make(chan struct{})
			s.SetReady(ready)

			rec := get("/healthz")
			Convey("The server should not be ready", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				var res health
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Ready, ShouldBeFalse)
			})

			Convey("When the bridge is ready", func() {
				close(ready)
				rec := get("/healthz")
				Convey("The server should be ready", func() {
					So(rec.Code, ShouldEqual, http.StatusOK)
					var res health
					So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
					So(res.Ready, ShouldBeTrue)
				})
			})
		})

		Convey("When handling other paths", func() {
			s.Handle("/network/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "network")
			}))
			rec := get("/network/devices")
			Convey("They should be served by the handler", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, "network")
			})
		})

		Convey("When listening on a random port", func() {
			addr, err := s.Listen("127.0.0.1:0")
			So(err, ShouldBeNil)
			defer s.Close()

			Convey("The metrics should be available", func() {
				res, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
				So(err, ShouldBeNil)
				defer res.Body.Close()
				body, _ := ioutil.ReadAll(res.Body)
				So(res.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, "go_goroutines")
			})

			Convey("When the server is closed", func() {
				So(s.Close(), ShouldBeNil)
				Convey("It should no longer accept connections", func() {
					_, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
					So(err, ShouldNotBeNil)
				})
				Convey("Closing again should not fail", func() {
					So(s.Close(), ShouldBeNil)
				})
			})
		})
	})
}
