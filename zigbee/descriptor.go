// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

// NodeDescriptor as reported by a node in response to a Node_Desc_req
type NodeDescriptor struct {
	Byte1                       uint8  `yaml:"byte1" json:"byte1"`
	Byte2                       uint8  `yaml:"byte2" json:"byte2"`
	MACCapabilityFlags          uint8  `yaml:"mac_capability_flags" json:"mac_capability_flags"`
	ManufacturerCode            uint16 `yaml:"manufacturer_code" json:"manufacturer_code"`
	MaximumBufferSize           uint8  `yaml:"maximum_buffer_size" json:"maximum_buffer_size"`
	MaximumIncomingTransferSize uint16 `yaml:"maximum_incoming_transfer_size" json:"maximum_incoming_transfer_size"`
	ServerMask                  uint16 `yaml:"server_mask" json:"server_mask"`
	MaximumOutgoingTransferSize uint16 `yaml:"maximum_outgoing_transfer_size" json:"maximum_outgoing_transfer_size"`
	DescriptorCapabilityField   uint8  `yaml:"descriptor_capability_field" json:"descriptor_capability_field"`
}

// MAC capability flags
const (
	macAlternatePANCoordinator = 1 << 0
	macFullFunctionDevice      = 1 << 1
	macMainsPowered            = 1 << 2
	macReceiverOnWhenIdle      = 1 << 3
	macSecurityCapable         = 1 << 6
	macAllocateAddress         = 1 << 7
)

// LogicalType of the node
func (n NodeDescriptor) LogicalType() LogicalType { return LogicalType(n.Byte1 & 0x07) }

// ComplexDescriptorAvailable returns true if the node has a complex descriptor
func (n NodeDescriptor) ComplexDescriptorAvailable() bool { return n.Byte1&0x08 != 0 }

// UserDescriptorAvailable returns true if the node has a user descriptor
func (n NodeDescriptor) UserDescriptorAvailable() bool { return n.Byte1&0x10 != 0 }

// IsAlternatePANCoordinator returns true if the node can become PAN coordinator
func (n NodeDescriptor) IsAlternatePANCoordinator() bool {
	return n.MACCapabilityFlags&macAlternatePANCoordinator != 0
}

// IsFullFunctionDevice returns true for full function devices
func (n NodeDescriptor) IsFullFunctionDevice() bool {
	return n.MACCapabilityFlags&macFullFunctionDevice != 0
}

// IsMainsPowered returns true for mains powered nodes
func (n NodeDescriptor) IsMainsPowered() bool { return n.MACCapabilityFlags&macMainsPowered != 0 }

// IsReceiverOnWhenIdle returns true if the node does not sleep
func (n NodeDescriptor) IsReceiverOnWhenIdle() bool {
	return n.MACCapabilityFlags&macReceiverOnWhenIdle != 0
}

// IsSecurityCapable returns true if the node supports high security
func (n NodeDescriptor) IsSecurityCapable() bool {
	return n.MACCapabilityFlags&macSecurityCapable != 0
}

// AllocateAddress returns true if the node wants its parent to allocate a short address
func (n NodeDescriptor) AllocateAddress() bool { return n.MACCapabilityFlags&macAllocateAddress != 0 }

// IsCoordinator returns true for the coordinator
func (n NodeDescriptor) IsCoordinator() bool { return n.LogicalType() == Coordinator }

// IsRouter returns true for routers
func (n NodeDescriptor) IsRouter() bool { return n.LogicalType() == Router }

// IsEndDevice returns true for end devices
func (n NodeDescriptor) IsEndDevice() bool { return n.LogicalType() == EndDevice }

// IsValid returns true if the descriptor carries a known logical type
func (n NodeDescriptor) IsValid() bool { return n.LogicalType() <= EndDevice }

// Attribute returns the externally visible attribute with the given name
func (n NodeDescriptor) Attribute(name string) (interface{}, bool) {
	switch name {
	case "byte1":
		return n.Byte1, true
	case "byte2":
		return n.Byte2, true
	case "mac_capability_flags":
		return n.MACCapabilityFlags, true
	case "manufacturer_code":
		return n.ManufacturerCode, true
	case "maximum_buffer_size":
		return n.MaximumBufferSize, true
	case "maximum_incoming_transfer_size":
		return n.MaximumIncomingTransferSize, true
	case "server_mask":
		return n.ServerMask, true
	case "maximum_outgoing_transfer_size":
		return n.MaximumOutgoingTransferSize, true
	case "descriptor_capability_field":
		return n.DescriptorCapabilityField, true
	case "allocate_address":
		return n.AllocateAddress(), true
	case "complex_descriptor_available":
		return n.ComplexDescriptorAvailable(), true
	case "is_alternate_pan_coordinator":
		return n.IsAlternatePANCoordinator(), true
	case "is_coordinator":
		return n.IsCoordinator(), true
	case "is_end_device":
		return n.IsEndDevice(), true
	case "is_full_function_device":
		return n.IsFullFunctionDevice(), true
	case "is_mains_powered":
		return n.IsMainsPowered(), true
	case "is_receiver_on_when_idle":
		return n.IsReceiverOnWhenIdle(), true
	case "is_router":
		return n.IsRouter(), true
	case "is_security_capable":
		return n.IsSecurityCapable(), true
	case "is_valid":
		return n.IsValid(), true
	case "logical_type":
		return n.LogicalType(), true
	case "user_descriptor_available":
		return n.UserDescriptorAvailable(), true
	}
	return nil, false
}
