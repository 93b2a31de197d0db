package common

import (
	"fmt"
	"net"
)

// InterfaceConfig is the IPv4 configuration of a local network interface
type InterfaceConfig struct {
	Name         string
	Address      IPv4Address
	Mask         IPv4Address
	HardwareAddr net.HardwareAddr
}

// Subnet computes the subnet range of the interface
func (c InterfaceConfig) Subnet() (SubnetRange, error) {
	return SubnetOf(c.Address, c.Mask)
}

// LocalInterfaceConfigs returns the IPv4 configuration of every up, non-loopback interface
func LocalInterfaceConfigs() ([]InterfaceConfig, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var configs []InterfaceConfig
	seen := make(map[string]struct{})

	for _, iface := range interfaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		cfg, ok := interfaceConfig(iface)
		if !ok {
			continue
		}

		// Avoid scanning the same subnet twice through aliases
		subnet, err := cfg.Subnet()
		if err != nil {
			continue
		}
		key := subnet.String()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		configs = append(configs, cfg)
	}

	return configs, nil
}

// LocalInterfaceConfig returns the IPv4 configuration of the named interface
func LocalInterfaceConfig(name string) (InterfaceConfig, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return InterfaceConfig{}, fmt.Errorf("could not get interface %s: %w", name, err)
	}
	cfg, ok := interfaceConfig(*iface)
	if !ok {
		return InterfaceConfig{}, fmt.Errorf("no IPv4 address found on interface %s", name)
	}
	return cfg, nil
}

// interfaceConfig picks the first IPv4 address of an interface
func interfaceConfig(iface net.Interface) (InterfaceConfig, bool) {
	addrs, err := iface.Addrs()
	if err != nil {
		return InterfaceConfig{}, false
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip, ok := FromIP(ipNet.IP)
		if !ok {
			continue
		}
		mask, ok := FromMask(ipNet.Mask)
		if !ok {
			continue
		}

		return InterfaceConfig{
			Name:         iface.Name,
			Address:      ip,
			Mask:         mask,
			HardwareAddr: iface.HardwareAddr,
		}, true
	}

	return InterfaceConfig{}, false
}
