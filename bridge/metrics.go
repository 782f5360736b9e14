// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import "github.com/prometheus/client_golang/prometheus"

var publications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "publications_total",
		Help:      "Total number of publications.",
	}, []string{"topic"},
)

var publishErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "publish_errors_total",
		Help:      "Total number of failed publications.",
	}, []string{"topic"},
)

var receivedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "messages_received_total",
		Help:      "Total number of messages received.",
	}, []string{"handler"},
)

var malformedCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "malformed_messages_total",
		Help:      "Total number of received messages that were not valid JSON.",
	},
)

var tasksInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "tasks_in_flight",
		Help:      "Number of running tasks.",
	},
)

var permittingGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "zigbee",
		Subsystem: "bridge",
		Name:      "permitting",
		Help:      "Whether the network permits joining (1) or not (0).",
	},
)

func init() {
	prometheus.MustRegister(publications)
	prometheus.MustRegister(publishErrors)
	prometheus.MustRegister(receivedCounter)
	prometheus.MustRegister(malformedCounter)
	prometheus.MustRegister(tasksInFlight)
	prometheus.MustRegister(permittingGauge)
}
