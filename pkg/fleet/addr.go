package fleet

import (
	"fmt"
	"net"
)

// discoverAdvertiseAddr picks the first global unicast IPv4 on a
// non-loopback interface. Hosts with multiple candidate addresses
// should configure the advertise address explicitly.
func discoverAdvertiseAddr() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || !ip.IsGlobalUnicast() {
				continue
			}
			return ip.String(), nil
		}
	}

	return "", fmt.Errorf("no usable interface address found; set the advertise address explicitly")
}
