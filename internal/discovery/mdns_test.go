package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func serviceEntry(instance, host string, port int) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	return entry
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	withV4 := serviceEntry("rfbridge-kitchen", "rfbridge-kitchen.local.", 8080)
	withV4.AddrIPv4 = []net.IP{net.ParseIP("192.168.4.16")}
	withV4.Text = []string{"path=/packets", "radio=cc1110"}

	noPort := serviceEntry("rfbridge-hall", "rfbridge-hall.local.", 0)
	noPort.AddrIPv4 = []net.IP{net.ParseIP("172.16.0.1")}

	noAddr := serviceEntry("rfbridge-attic", "rfbridge-attic.local.", 8080)

	v6Only := serviceEntry("rfbridge-v6", "rfbridge-v6.local.", 8080)
	v6Only.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	both := serviceEntry("rfbridge-both", "rfbridge-both.local.", 9000)
	both.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.50")}
	both.AddrIPv6 = []net.IP{net.ParseIP("fe80::2")}

	noName := serviceEntry("", "anon.local.", 8080)
	noName.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.1")}

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{"IPv4 bridge", withV4, false, "rfbridge-kitchen", "192.168.4.16", 8080},
		{"port defaults", noPort, false, "rfbridge-hall", "172.16.0.1", DefaultPort},
		{"no address", noAddr, true, "", "", 0},
		{"IPv6 only", v6Only, false, "rfbridge-v6", "fe80::1", 8080},
		{"prefers IPv4", both, false, "rfbridge-both", "192.168.1.50", 9000},
		{"no instance name", noName, true, "", "", 0},
		{"nil entry", nil, true, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if bridge != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", bridge)
				}
				return
			}

			if bridge == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil bridge")
			}
			if bridge.Name != tt.wantName {
				t.Errorf("bridge.Name = %v, want %v", bridge.Name, tt.wantName)
			}
			if bridge.IP != tt.wantIP {
				t.Errorf("bridge.IP = %v, want %v", bridge.IP, tt.wantIP)
			}
			if bridge.Port != tt.wantPort {
				t.Errorf("bridge.Port = %v, want %v", bridge.Port, tt.wantPort)
			}
			if bridge.Hostname != tt.entry.HostName {
				t.Errorf("bridge.Hostname = %v, want %v", bridge.Hostname, tt.entry.HostName)
			}
			if time.Since(bridge.DiscoveredAt) > time.Second {
				t.Errorf("bridge.DiscoveredAt is not recent: %v", bridge.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := serviceEntry("rfbridge-kitchen", "rfbridge-kitchen.local.", 8080)
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.4.16")}
	entry.Text = []string{"path=/rf", "fw=2.1", "tls", "radio=cc1110"}

	bridge := scanner.parseServiceEntry(entry)
	if bridge == nil {
		t.Fatal("parseServiceEntry() = nil, want bridge")
	}

	expectedMetadata := map[string]string{
		"path":  "/rf",
		"fw":    "2.1",
		"tls":   "",
		"radio": "cc1110",
	}

	if len(bridge.Metadata) != len(expectedMetadata) {
		t.Errorf("bridge.Metadata has %d entries, want %d", len(bridge.Metadata), len(expectedMetadata))
	}
	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := bridge.Metadata[key]; !ok {
			t.Errorf("bridge.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("bridge.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}

	if got := bridge.WebSocketURL(); got != "ws://192.168.4.16:8080/rf" {
		t.Errorf("WebSocketURL() = %v", got)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Live mDNS discovery needs multicast on the test host and is exercised
// manually with: rfmsg discover --timeout 5s
