// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

// Attributes of network entities that are visible to subscribers
var (
	DeviceFields = []string{
		"ieee",
		"manufacturer",
		"manufacturer_id",
		"model",
		"skip_configuration",
		"relays",
		"node_desc",
		"endpoints",
	}

	NodeDescriptorFields = []string{
		"byte1",
		"byte2",
		"mac_capability_flags",
		"manufacturer_code",
		"maximum_buffer_size",
		"maximum_incoming_transfer_size",
		"server_mask",
		"maximum_outgoing_transfer_size",
		"descriptor_capability_field",
		"allocate_address",
		"complex_descriptor_available",
		"is_alternate_pan_coordinator",
		"is_coordinator",
		"is_end_device",
		"is_full_function_device",
		"is_mains_powered",
		"is_receiver_on_when_idle",
		"is_router",
		"is_security_capable",
		"is_valid",
		"logical_type",
		"user_descriptor_available",
	}

	EndpointFields = []string{
		"device_type",
		"status",
		"profile_id",
		"endpoint_id",
		"manufacturer",
		"manufacturer_id",
		"member_of",
		"model",
		"unique_id",
		"in_clusters",
		"out_clusters",
	}

	ClusterFields = []string{
		"cluster_id",
		"name",
		"ep_attribute",
		"endpoint_id",
	}
)

// ZDOPlaceholder is how the ZDO endpoint is represented to subscribers
const ZDOPlaceholder = "ZDO"
