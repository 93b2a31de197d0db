package arp

import (
	"bufio"
	"io"
	"net"
	"strings"
)

// Peer is an IPv4 to link address association read from a resolution table
type Peer struct {
	IP  net.IP
	MAC net.HardwareAddr
}

// parseLinuxARPTable parses the /proc/net/arp format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        wlan0
func parseLinuxARPTable(r io.Reader) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(r)

	// Skip header line
	if !scanner.Scan() {
		return peers, scanner.Err()
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		// Flags 0x0 marks an incomplete entry that is still being resolved
		if fields[2] == "0x0" {
			continue
		}

		if peer, ok := newPeer(fields[0], fields[3]); ok {
			peers = append(peers, peer)
		}
	}

	return peers, scanner.Err()
}

// parseDarwinARPTable parses `arp -a` output on macOS:
//
//	? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
func parseDarwinARPTable(r io.Reader) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Extract IP address (between parentheses)
		ipStart := strings.Index(line, "(")
		ipEnd := strings.Index(line, ")")
		if ipStart == -1 || ipEnd == -1 || ipStart >= ipEnd {
			continue
		}
		ipStr := line[ipStart+1 : ipEnd]

		// Extract MAC address (after "at ")
		atIndex := strings.Index(line, " at ")
		if atIndex == -1 {
			continue
		}
		rest := strings.Fields(line[atIndex+4:])
		if len(rest) == 0 {
			continue
		}

		if peer, ok := newPeer(ipStr, normalizeDarwinMAC(rest[0])); ok {
			peers = append(peers, peer)
		}
	}

	return peers, scanner.Err()
}

// normalizeDarwinMAC pads the single digit octets macOS prints (0:1a:2:...)
func normalizeDarwinMAC(mac string) string {
	octets := strings.Split(mac, ":")
	if len(octets) != 6 {
		return mac
	}
	for i, octet := range octets {
		if len(octet) == 1 {
			octets[i] = "0" + octet
		}
	}
	return strings.Join(octets, ":")
}

// parseWindowsARPTable parses `arp -a` output on Windows:
//
//	Interface: 192.168.1.100 --- 0xa
//	  Internet Address      Physical Address      Type
//	  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
func parseWindowsARPTable(r io.Reader) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(r)

	inARPTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, "Internet Address") && strings.Contains(line, "Physical Address") {
			inARPTable = true
			continue
		}
		if strings.HasPrefix(line, "Interface:") {
			inARPTable = false
			continue
		}
		if !inARPTable {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		if peer, ok := newPeer(fields[0], strings.ReplaceAll(fields[1], "-", ":")); ok {
			peers = append(peers, peer)
		}
	}

	return peers, scanner.Err()
}

// newPeer validates one table row. Incomplete, broadcast and non-IPv4 rows are dropped.
func newPeer(ipStr, macStr string) (Peer, bool) {
	switch macStr {
	case "", "(incomplete)", "<incomplete>", "incomplete", "00:00:00:00:00:00", "ff:ff:ff:ff:ff:ff":
		return Peer{}, false
	}

	ip := net.ParseIP(ipStr).To4()
	if ip == nil {
		return Peer{}, false
	}

	mac, err := net.ParseMAC(macStr)
	if err != nil || len(mac) != 6 {
		return Peer{}, false
	}

	return Peer{IP: ip, MAC: mac}, true
}
