package common

import "net"

// IsNetworkOrBroadcast reports whether ip is the network or broadcast address of the subnet.
func (s SubnetRange) IsNetworkOrBroadcast(ip IPv4Address) bool {
	return ip == s.Base || ip == s.Last()
}

// IsNetworkOrBroadcast checks if an IP is the network or broadcast address of network.
// Non-IPv4 input is never reported as network or broadcast.
func IsNetworkOrBroadcast(ip net.IP, network *net.IPNet) bool {
	if network == nil {
		return false
	}

	addr, ok := FromIP(ip)
	if !ok {
		return false
	}
	subnet, err := SubnetFromIPNet(network)
	if err != nil {
		// /31 and /32 have no distinct network or broadcast address
		return false
	}
	return subnet.IsNetworkOrBroadcast(addr)
}
