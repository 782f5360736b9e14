// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package backend

import "github.com/TheThingsNetwork/zigbee-bridge/types"

// Broker is a connection to a publish/subscribe message broker
type Broker interface {
	Connect() error
	Disconnect() error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topicFilter string) (<-chan *types.Message, error)
	Unsubscribe(topicFilter string) error
}
