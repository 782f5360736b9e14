// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package types

// Message is a message received from the broker
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}
