package arp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
)

// DefaultTableTTL bounds how long a parsed OS table snapshot is reused
const DefaultTableTTL = 500 * time.Millisecond

const snapshotKey = "arp"

type tableSnapshot map[common.IPv4Address]net.HardwareAddr

// SystemTable is a ResolutionCache backed by the operating system ARP table.
// The parsed table is memoized so a correlation pass reads it once.
type SystemTable struct {
	snapshot gcache.Cache[string, tableSnapshot]
}

// NewSystemTable creates a SystemTable reusing snapshots for ttl (DefaultTableTTL if zero)
func NewSystemTable(ttl time.Duration) *SystemTable {
	return newSystemTable(ttl, readLocalARPTable)
}

func newSystemTable(ttl time.Duration, read func() ([]Peer, error)) *SystemTable {
	if ttl <= 0 {
		ttl = DefaultTableTTL
	}
	snapshot := gcache.New[string, tableSnapshot](1).
		LRU().
		Expiration(ttl).
		LoaderFunc(func(_ string) (tableSnapshot, error) {
			peers, err := read()
			if err != nil {
				return nil, fmt.Errorf("failed to read local ARP table: %w", err)
			}
			table := make(tableSnapshot, len(peers))
			for _, peer := range peers {
				if ip, ok := common.FromIP(peer.IP); ok {
					table[ip] = peer.MAC
				}
			}
			return table, nil
		}).
		Build()
	return &SystemTable{snapshot: snapshot}
}

// Lookup returns the link address of target if the OS has resolved it
func (t *SystemTable) Lookup(ctx context.Context, target common.IPv4Address) (net.HardwareAddr, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	table, err := t.snapshot.Get(snapshotKey)
	if err != nil {
		return nil, false, err
	}
	mac, ok := table[target]
	return mac, ok, nil
}

// Peers returns every entry of the current snapshot
func (t *SystemTable) Peers() ([]Peer, error) {
	table, err := t.snapshot.Get(snapshotKey)
	if err != nil {
		return nil, err
	}
	peers := make([]Peer, 0, len(table))
	for ip, mac := range table {
		peers = append(peers, Peer{IP: ip.IP(), MAC: mac})
	}
	return peers, nil
}

// Refresh drops the memoized snapshot
func (t *SystemTable) Refresh() {
	t.snapshot.Purge()
}
