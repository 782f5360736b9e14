// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"net"
	"net/url"

	"github.com/TheThingsNetwork/zigbee-bridge/backend/mqtt"
)

// DefaultBrokerPort is used when the broker URI has no port
const DefaultBrokerPort = "1883"

// ParseBrokerURI parses a broker URI of the form mqtt://[user[:password]@]host[:port]
func ParseBrokerURI(uri string) (mqtt.Config, error) {
	var config mqtt.Config
	u, err := url.Parse(uri)
	if err != nil {
		return config, fmt.Errorf("%w: broker URI: %v", ErrConfiguration, err)
	}
	if u.Scheme != "mqtt" {
		return config, fmt.Errorf("%w: broker URI must use the mqtt scheme, not %q", ErrConfiguration, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return config, fmt.Errorf("%w: broker URI has no host", ErrConfiguration)
	}
	port := u.Port()
	if port == "" {
		port = DefaultBrokerPort
	}
	config.Brokers = []string{"tcp://" + net.JoinHostPort(host, port)}
	if u.User != nil {
		config.Username = u.User.Username()
		config.Password, _ = u.User.Password()
	}
	return config, nil
}
