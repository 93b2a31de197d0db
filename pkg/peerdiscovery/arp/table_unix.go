//go:build !windows

package arp

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	osutils "github.com/projectdiscovery/utils/os"
)

const procNetARP = "/proc/net/arp"

// readLocalARPTable reads the local ARP table (Linux and macOS)
func readLocalARPTable() ([]Peer, error) {
	if osutils.IsLinux() {
		return readLinuxARPTable()
	} else if osutils.IsOSX() {
		return readDarwinARPTable()
	}
	return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
}

// readLinuxARPTable reads ARP table from /proc/net/arp
func readLinuxARPTable() ([]Peer, error) {
	f, err := os.Open(procNetARP)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return parseLinuxARPTable(f)
}

// readDarwinARPTable reads ARP table using 'arp -an' command on macOS
func readDarwinARPTable() ([]Peer, error) {
	output, err := exec.Command("arp", "-an").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute arp -an: %w", err)
	}
	return parseDarwinARPTable(bytes.NewReader(output))
}
