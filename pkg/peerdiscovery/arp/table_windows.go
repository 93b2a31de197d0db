//go:build windows

package arp

import (
	"bytes"
	"fmt"
	"os/exec"
)

// readLocalARPTable reads the local ARP table on Windows using 'arp -a' command
func readLocalARPTable() ([]Peer, error) {
	output, err := exec.Command("arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute arp -a: %w", err)
	}
	return parseWindowsARPTable(bytes.NewReader(output))
}
