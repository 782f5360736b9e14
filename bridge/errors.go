// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import "errors"

var (
	// ErrConfiguration is returned for an invalid bridge configuration, such as a broker URI with the wrong scheme
	ErrConfiguration = errors.New("bridge: invalid configuration")

	// ErrPublish is returned when the broker does not accept a publication
	ErrPublish = errors.New("bridge: could not publish")

	// ErrTransport is returned when a call to the network controller or the broker fails
	ErrTransport = errors.New("bridge: transport failure")

	// ErrMalformedMessage is returned for inbound messages that are not valid JSON
	ErrMalformedMessage = errors.New("bridge: malformed message")

	// ErrMessageStreamClosed is returned when the inbound message stream ends while the bridge is running
	ErrMessageStreamClosed = errors.New("bridge: message stream closed")
)
