// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/apex/log"
	"github.com/googollee/go-socket.io"
)

// BufferSize indicates the maximum number of events that are buffered for the websocket
var BufferSize = 10

const (
	room            = "evts"
	joinedEvt       = "device-joined"
	initializedEvt  = "device-initialized"
	leftEvt         = "device-left"
	attributeEvt    = "attribute-updated"
	contentTypeJSON = "application/json; charset=utf-8"
)

type event struct {
	name string
	data interface{}
}

// Server is a http server that allows simulating devices on the network
// and exposes the network events over websockets
type Server struct {
	ctx        log.Interface
	controller *Controller
	server     *socketio.Server
	events     chan event
	done       chan struct{}
	closeOnce  sync.Once
}

// NewServer creates a new server for the controller and registers it as listener
func NewServer(controller *Controller, ctx log.Interface) (*Server, error) {
	server, err := socketio.NewServer(nil)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ctx:        ctx.WithField("Controller", "Dummy-HTTP"),
		controller: controller,
		server:     server,
		events:     make(chan event, BufferSize),
		done:       make(chan struct{}),
	}
	s.server.On("connection", func(so socketio.Socket) {
		s.handleConnect(so)
	})
	controller.AddListener(s)
	go s.handleEvents()
	return s, nil
}

// Handler returns the http handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.server)
	mux.HandleFunc("/network/devices", s.handleDevices)
	mux.HandleFunc("/network/permit", s.handlePermit)
	mux.HandleFunc("/network/join", s.handleJoin)
	mux.HandleFunc("/network/leave", s.handleLeave)
	mux.HandleFunc("/network/attribute", s.handleAttribute)
	return mux
}

// Close stops emitting events. It is safe to call Close more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Server) handleConnect(so socketio.Socket) {
	ctx := s.ctx.WithField("ID", so.Id())
	ctx.Debug("Socket connected")
	so.Join(room)
	so.On("disconnection", func() {
		ctx.Debug("Socket disconnected")
	})
}

func (s *Server) handleEvents() {
	for {
		select {
		case <-s.done:
			return
		case evt := <-s.events:
			s.emit(evt.name, evt.data)
		}
	}
}

func (s *Server) emit(name string, v interface{}) {
	marshalled, err := json.Marshal(v)
	if err != nil {
		s.ctx.WithError(err).Error("Could not marshal event")
		return
	}
	s.server.BroadcastTo(room, name, string(marshalled))
}

func (s *Server) push(name string, data interface{}) {
	select {
	case s.events <- event{name, data}:
	default:
		s.ctx.WithField("Event", name).Warn("Dropping event on websocket")
	}
}

// DeviceJoined implements zigbee.Listener
func (s *Server) DeviceJoined(device *zigbee.Device) {
	s.push(joinedEvt, map[string]interface{}{"ieee": device.IEEE()})
}

// DeviceInitialized implements zigbee.Listener
func (s *Server) DeviceInitialized(device *zigbee.Device) {
	s.push(initializedEvt, recordOf(device))
}

// DeviceLeft implements zigbee.Listener
func (s *Server) DeviceLeft(device *zigbee.Device) {
	s.push(leftEvt, map[string]interface{}{"ieee": device.IEEE()})
}

// AttributeUpdated implements zigbee.Listener
func (s *Server) AttributeUpdated(device *zigbee.Device, cluster *zigbee.Cluster, attributeID uint16, value interface{}) {
	s.push(attributeEvt, map[string]interface{}{
		"ieee":         device.IEEE(),
		"cluster":      cluster,
		"attribute_id": attributeID,
		"value":        value,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	devices := s.controller.Devices()
	records := make([]Record, 0, len(devices))
	for _, device := range devices {
		records = append(records, recordOf(device))
	}
	sortRecords(records)
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePermit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"permitting": s.controller.Permitting()})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var record Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.controller.Join(record); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"ieee": record.IEEE})
}

type leaveRequest struct {
	IEEE zigbee.EUI64 `json:"ieee"`
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.controller.Leave(req.IEEE); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ieee": req.IEEE})
}

type attributeRequest struct {
	IEEE        zigbee.EUI64     `json:"ieee"`
	EndpointID  uint8            `json:"endpoint_id"`
	ClusterID   zigbee.ClusterID `json:"cluster_id"`
	AttributeID uint16           `json:"attribute_id"`
	Value       interface{}      `json:"value"`
}

func (s *Server) handleAttribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req attributeRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.controller.UpdateAttribute(req.IEEE, req.EndpointID, req.ClusterID, req.AttributeID, req.Value); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ieee": req.IEEE})
}
