package arp

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
)

// lazyTable is an OS table fake where probed addresses resolve on the next read
type lazyTable struct {
	mu       sync.Mutex
	entries  []Peer
	resolves map[string]net.HardwareAddr
	failRead bool
}

func (l *lazyTable) read() ([]Peer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failRead {
		return nil, errors.New("arp: command not found")
	}
	return append([]Peer(nil), l.entries...), nil
}

func (l *lazyTable) probe(_ context.Context, target common.IPv4Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if mac, ok := l.resolves[target.String()]; ok {
		l.entries = append(l.entries, Peer{IP: target.IP(), MAC: mac})
		delete(l.resolves, target.String())
	}
	return nil
}

func peerIPs(peers []Peer) []string {
	ips := make([]string, 0, len(peers))
	for _, peer := range peers {
		ips = append(ips, peer.IP.String())
	}
	sort.Strings(ips)
	return ips
}

func TestDiscoverPeers(t *testing.T) {
	gateway := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	nas := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	remote := net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
	errResolver := errors.New("no pcap permission")

	tests := []struct {
		name       string
		interfaces []common.InterfaceConfig
		failRead   bool
		failAll    bool
		wantErr    bool
		validate   func(t *testing.T, peers []Peer, summaries []*Summary)
	}{
		{
			name: "table peers merged with swept devices",
			interfaces: []common.InterfaceConfig{
				mustIface(t, "10.0.0.5", "255.255.255.248"),
				// too large for the default store capacity
				mustIface(t, "172.16.0.1", "255.0.0.0"),
				// point-to-point link has no host range
				mustIface(t, "192.168.9.1", "255.255.255.255"),
			},
			validate: func(t *testing.T, peers []Peer, summaries []*Summary) {
				want := []string{"10.0.0.1", "10.0.0.3", "192.168.50.9"}
				got := peerIPs(peers)
				if len(got) != len(want) {
					t.Fatalf("peers = %v, want %v", got, want)
				}
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("peer %d = %s, want %s", i, got[i], want[i])
					}
				}
				if len(summaries) != 2 {
					t.Fatalf("got %d summaries, want 2", len(summaries))
				}
				if summaries[0].AddressesScanned != 6 || summaries[0].DevicesFound != 2 {
					t.Errorf("/29 summary = %d scanned, %d found, want 6 and 2", summaries[0].AddressesScanned, summaries[0].DevicesFound)
				}
				if summaries[1].AddressesScanned != 0 {
					t.Errorf("oversized subnet scanned %d addresses", summaries[1].AddressesScanned)
				}
			},
		},
		{
			name:       "unreadable table does not stop the sweep",
			interfaces: []common.InterfaceConfig{mustIface(t, "10.0.0.5", "255.255.255.248")},
			failRead:   true,
			validate: func(t *testing.T, peers []Peer, summaries []*Summary) {
				if len(peers) != 0 {
					t.Errorf("peers = %v, want none", peerIPs(peers))
				}
				if len(summaries) != 1 {
					t.Errorf("got %d summaries, want 1", len(summaries))
				}
			},
		},
		{
			name:       "every resolver failing is an error",
			interfaces: []common.InterfaceConfig{mustIface(t, "10.0.0.5", "255.255.255.248"), mustIface(t, "10.1.0.5", "255.255.255.0")},
			failAll:    true,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &lazyTable{
				entries: []Peer{
					{IP: net.ParseIP("10.0.0.1").To4(), MAC: gateway},
					{IP: net.ParseIP("192.168.50.9").To4(), MAC: remote},
				},
				resolves: map[string]net.HardwareAddr{"10.0.0.3": nas},
				failRead: tt.failRead,
			}
			table := newSystemTable(time.Hour, fake.read)

			var summaries []*Summary
			config := &Config{
				Wait:      (&countingWait{}).wait,
				OnSummary: func(s *Summary) { summaries = append(summaries, s) },
			}
			resolve := func(_ context.Context, _ common.InterfaceConfig) (Prober, ResolutionCache, func(), error) {
				if tt.failAll {
					return nil, nil, nil, errResolver
				}
				return ProberFunc(fake.probe), table, func() {}, nil
			}

			peers, err := discoverPeers(context.Background(), table, tt.interfaces, resolve, config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("discoverPeers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errResolver) {
					t.Errorf("error = %v, want it to wrap %v", err, errResolver)
				}
				return
			}
			tt.validate(t, peers, summaries)
		})
	}
}

func TestDiscoverPeersStopsOnCancel(t *testing.T) {
	table := newSystemTable(time.Hour, func() ([]Peer, error) { return nil, nil })
	ctx, cancel := context.WithCancel(context.Background())

	var swept []string
	resolve := func(_ context.Context, iface common.InterfaceConfig) (Prober, ResolutionCache, func(), error) {
		swept = append(swept, iface.Address.String())
		cancel()
		return ProberFunc(func(context.Context, common.IPv4Address) error { return nil }), table, func() {}, nil
	}

	interfaces := []common.InterfaceConfig{mustIface(t, "10.0.0.5", "255.255.255.248"), mustIface(t, "10.1.0.5", "255.255.255.248")}
	if _, err := discoverPeers(ctx, table, interfaces, resolve, &Config{Wait: (&countingWait{}).wait}); err != nil {
		t.Fatalf("discoverPeers() error = %v, want nil on cancel", err)
	}
	if len(swept) != 1 {
		t.Errorf("resolved %d interfaces after cancel, want 1", len(swept))
	}
}
