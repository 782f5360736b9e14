// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package zigbee

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EUI64 is the IEEE address of a device, stored most significant byte first
type EUI64 [8]byte

// String implements fmt.Stringer
func (e EUI64) String() string {
	parts := make([]string, len(e))
	for i, b := range e {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// MarshalText implements encoding.TextMarshaler
func (e EUI64) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *EUI64) UnmarshalText(data []byte) error {
	parsed, err := ParseEUI64(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEUI64 parses an IEEE address in the "00:0d:6f:00:0a:90:69:e7" form.
// Dashes or no separators at all are also accepted.
func ParseEUI64(s string) (eui EUI64, err error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(clean) != 2*len(eui) {
		return eui, fmt.Errorf("zigbee: invalid EUI64 %q", s)
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return eui, fmt.Errorf("zigbee: invalid EUI64 %q: %s", s, err)
	}
	copy(eui[:], b)
	return eui, nil
}

// NWK is a 16-bit network address
type NWK uint16

// ClusterID identifies a ZCL cluster
type ClusterID uint16

// GroupID identifies a Zigbee group
type GroupID uint16

// LogicalType of a node, as found in its node descriptor
type LogicalType uint8

// Logical types
const (
	Coordinator LogicalType = 0
	Router      LogicalType = 1
	EndDevice   LogicalType = 2
)

var logicalTypeNames = map[LogicalType]string{
	Coordinator: "Coordinator",
	Router:      "Router",
	EndDevice:   "EndDevice",
}

func (t LogicalType) String() string {
	if name, ok := logicalTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LogicalType(%d)", uint8(t))
}

// EndpointStatus is the interview state of an endpoint
type EndpointStatus uint8

// Endpoint states
const (
	EndpointNew      EndpointStatus = 0
	EndpointZDOInit  EndpointStatus = 1
	EndpointInactive EndpointStatus = 3
)

var endpointStatusNames = map[EndpointStatus]string{
	EndpointNew:      "NEW",
	EndpointZDOInit:  "ZDO_INIT",
	EndpointInactive: "ENDPOINT_INACTIVE",
}

func (s EndpointStatus) String() string {
	if name, ok := endpointStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EndpointStatus(%d)", uint8(s))
}

// DeviceStatus is the interview state of a device
type DeviceStatus uint8

// Device states
const (
	DeviceNew           DeviceStatus = 0
	DeviceZDOInit       DeviceStatus = 1
	DeviceEndpointsInit DeviceStatus = 2
)

var deviceStatusNames = map[DeviceStatus]string{
	DeviceNew:           "NEW",
	DeviceZDOInit:       "ZDO_INIT",
	DeviceEndpointsInit: "ENDPOINTS_INIT",
}

func (s DeviceStatus) String() string {
	if name, ok := deviceStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DeviceStatus(%d)", uint8(s))
}
