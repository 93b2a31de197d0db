package common

import (
	"errors"
	"net"
	"testing"
)

func mustParse(t *testing.T, s string) IPv4Address {
	t.Helper()
	ip, err := ParseIPv4(s)
	if err != nil {
		t.Fatalf("ParseIPv4(%q) error = %v", s, err)
	}
	return ip
}

func TestSubnetOf(t *testing.T) {
	tests := []struct {
		name       string
		ip         string
		mask       string
		wantErr    error
		wantBase   string
		wantLast   string
		wantDevice uint32
	}{
		{
			name:       "/24 from interface address",
			ip:         "10.0.0.5",
			mask:       "255.255.255.0",
			wantBase:   "10.0.0.0",
			wantLast:   "10.0.0.255",
			wantDevice: 254,
		},
		{
			name:       "/16",
			ip:         "172.16.40.9",
			mask:       "255.255.0.0",
			wantBase:   "172.16.0.0",
			wantLast:   "172.16.255.255",
			wantDevice: 65534,
		},
		{
			name:       "/30",
			ip:         "192.168.1.6",
			mask:       "255.255.255.252",
			wantBase:   "192.168.1.4",
			wantLast:   "192.168.1.7",
			wantDevice: 2,
		},
		{
			name:    "all-zero mask",
			ip:      "10.0.0.5",
			mask:    "0.0.0.0",
			wantErr: ErrInvalidMask,
		},
		{
			name:    "non-contiguous mask",
			ip:      "10.0.0.5",
			mask:    "255.0.255.0",
			wantErr: ErrInvalidMask,
		},
		{
			name:    "all-one mask",
			ip:      "10.0.0.5",
			mask:    "255.255.255.255",
			wantErr: ErrDegenerateSubnet,
		},
		{
			name:    "/31 has no usable hosts",
			ip:      "10.0.0.4",
			mask:    "255.255.255.254",
			wantErr: ErrDegenerateSubnet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subnet, err := SubnetOf(mustParse(t, tt.ip), mustParse(t, tt.mask))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SubnetOf() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubnetOf() unexpected error = %v", err)
			}
			if got := subnet.Base.String(); got != tt.wantBase {
				t.Errorf("Base = %s, want %s", got, tt.wantBase)
			}
			if got := subnet.Last().String(); got != tt.wantLast {
				t.Errorf("Last() = %s, want %s", got, tt.wantLast)
			}
			if got := subnet.MaxDevices(); got != tt.wantDevice {
				t.Errorf("MaxDevices() = %d, want %d", got, tt.wantDevice)
			}
		})
	}
}

func TestSubnetOfInvariants(t *testing.T) {
	addrs := []string{"0.0.0.1", "10.1.2.3", "192.168.1.77", "255.255.255.254", "8.8.4.4"}
	for ones := 1; ones <= 30; ones++ {
		mask, _ := FromMask(net.CIDRMask(ones, 32))
		for _, a := range addrs {
			ip := mustParse(t, a)
			subnet, err := SubnetOf(ip, mask)
			if err != nil {
				t.Fatalf("SubnetOf(%s, /%d) error = %v", a, ones, err)
			}
			if subnet.Base&mask != subnet.Base {
				t.Errorf("/%d %s: base %s not masked", ones, a, subnet.Base)
			}
			if subnet.Last() != subnet.Base|^mask {
				t.Errorf("/%d %s: last %s != base|^mask", ones, a, subnet.Last())
			}
			if !subnet.Contains(ip) {
				t.Errorf("/%d %s: subnet %s does not contain source address", ones, a, subnet)
			}
			if got, want := subnet.MaxDevices(), uint32(subnet.Last()-subnet.Base)-1; got != want {
				t.Errorf("/%d %s: MaxDevices() = %d, want %d", ones, a, got, want)
			}
		}
	}
}

func TestNextSaturates(t *testing.T) {
	if got := Next(mustParse(t, "10.0.0.255")); got.String() != "10.0.1.0" {
		t.Errorf("Next(10.0.0.255) = %s, want 10.0.1.0", got)
	}

	ip := MaxIPv4Address
	for i := 0; i < 3; i++ {
		ip = Next(ip)
		if ip != MaxIPv4Address {
			t.Fatalf("Next(max) iteration %d = %s, want %s", i, ip, MaxIPv4Address)
		}
	}
}

func TestWireOrderRoundTrip(t *testing.T) {
	ip := mustParse(t, "192.168.1.10")
	wire := ToWireOrder(ip)
	if wire != 0x0A01A8C0 {
		t.Errorf("ToWireOrder(192.168.1.10) = %#x, want 0x0a01a8c0", wire)
	}
	if back := ToHostOrder(wire); back != ip {
		t.Errorf("ToHostOrder(ToWireOrder(ip)) = %s, want %s", back, ip)
	}

	// Ordering only holds on the canonical form
	a, b := mustParse(t, "10.0.0.255"), mustParse(t, "10.0.1.0")
	if !(a < b) {
		t.Errorf("expected %s < %s in canonical order", a, b)
	}
	if !(ToWireOrder(a) > ToWireOrder(b)) {
		t.Errorf("expected wire order to invert the comparison for %s and %s", a, b)
	}
}

func TestIsNetworkOrBroadcast(t *testing.T) {
	_, network, err := net.ParseCIDR("192.168.1.0/24")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.0", true},
		{"192.168.1.255", true},
		{"192.168.1.1", false},
		{"192.168.1.254", false},
		{"fe80::1", false},
	}
	for _, tt := range tests {
		if got := IsNetworkOrBroadcast(net.ParseIP(tt.ip), network); got != tt.want {
			t.Errorf("IsNetworkOrBroadcast(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if IsNetworkOrBroadcast(net.ParseIP("192.168.1.1"), nil) {
		t.Error("nil network must not match")
	}
}

func TestSubnetFromIPNet(t *testing.T) {
	_, network, err := net.ParseCIDR("10.20.30.0/23")
	if err != nil {
		t.Fatal(err)
	}
	subnet, err := SubnetFromIPNet(network)
	if err != nil {
		t.Fatalf("SubnetFromIPNet() error = %v", err)
	}
	if subnet.String() != "10.20.30.0/23" {
		t.Errorf("String() = %s, want 10.20.30.0/23", subnet)
	}
	if subnet.IPNet().String() != network.String() {
		t.Errorf("IPNet() = %s, want %s", subnet.IPNet(), network)
	}
}
