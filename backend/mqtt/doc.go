// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package mqtt connects the bridge to an MQTT broker.
//
// Messages are published with QoS 1 and Publish waits for the broker to
// acknowledge them. Subscriptions are delivered on buffered channels of
// *types.Message; when the buffer is full, messages are dropped with a warning.
// Retained messages that the broker replays on subscription are ignored, so
// that a retained command (such as a permit request) is not executed again
// every time the bridge reconnects.
//
// When a will topic is configured, the broker publishes the will payload
// (retained) when the connection to the bridge is lost.
package mqtt
