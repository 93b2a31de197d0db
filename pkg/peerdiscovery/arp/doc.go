// Package arp discovers hosts on the local IPv4 subnet with a batched
// address-resolution sweep.
//
// The sweep is deliberately slow:
//   - The subnet is enumerated in canonical order, starting after the network address
//   - A small batch of targets (5 by default) is probed at a time, because the
//     resolution cache that answers the lookups has a limited size and large
//     batches get evicted before they can be correlated
//   - The engine waits a fixed quiescence window for replies to land in the cache
//   - Each batch member is looked up in the cache and resolved hosts are stored once
//
// Probing and the cache are external capabilities. The package ships adapters for
// the operating system ARP table (SystemTable), kernel-triggered resolution over UDP
// or ICMP (UDPProber, ICMPProber) and a raw pcap resolver that sends ARP requests
// and keeps its own bounded cache of replies (PcapResolver).
//
// Example usage:
//
//	iface, err := common.LocalInterfaceConfig("wlan0")
//	engine, err := arp.NewEngine(iface, arp.NewUDPProber(0), arp.NewSystemTable(0), nil)
//	summary, err := engine.Run(ctx)
//	for _, device := range engine.Devices() {
//		fmt.Println(device.IP, device.MAC)
//	}
//
// Limitations:
//   - A /16 sweep at 5 addresses per 5 seconds takes more than 18 hours
//   - Hosts that do not answer within the window are simply absent from the results
package arp
