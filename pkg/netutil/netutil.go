// Package netutil resolves the address other hosts use to reach this one.
package netutil

import (
	"net"

	"github.com/jackpal/gateway"
)

const loopback = "127.0.0.1"

// HostAddress returns the IP of the interface holding the default route. It falls
// back to the first non-loopback IPv4 address, then to the loopback address.
func HostAddress() string {
	if ip, err := gateway.DiscoverInterface(); err == nil && ip != nil && !ip.IsUnspecified() {
		return ip.String()
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return loopback
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}

	return loopback
}
