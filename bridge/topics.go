// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

// Topics used by the bridge
const (
	TopicFilter            = "zigbee/#"
	TopicPermit            = "zigbee/permit"
	TopicPermitting        = "zigbee/permitting"
	TopicDevices           = "zigbee/devices"
	TopicDeviceJoined      = "zigbee/device-joined"
	TopicDeviceInitialized = "zigbee/device-initialized"
	TopicDeviceLeft        = "zigbee/device-left"
	TopicAttributeUpdated  = "zigbee/attribute-updated"
	TopicBridgeState       = "zigbee/bridge/state"
)

// Payloads of TopicBridgeState
const (
	StateOnline  = "online"
	StateOffline = "offline"
)
