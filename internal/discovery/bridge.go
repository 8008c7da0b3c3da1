package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Bridge represents a radio bridge advertising itself on the local network
type Bridge struct {
	// Name is the mDNS instance name (e.g., "rfbridge-kitchen")
	Name string

	// Hostname is the mDNS hostname (e.g., "rfbridge-kitchen.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the bridge has no IPv4 address
	IP string

	// Port is the websocket port
	Port int

	// Metadata contains the TXT record data.
	// Known keys: "path" (websocket path), "tls" ("1" for wss),
	// "radio" (radio chip), "fw" (bridge firmware)
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("RF bridge %s (%s) at %s", b.Name, b.Hostname, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

// WebSocketURL returns the packet endpoint of the bridge.
func (b *Bridge) WebSocketURL() string {
	scheme := "ws"
	if tls := b.GetMetadata("tls"); tls == "1" || strings.EqualFold(tls, "true") {
		scheme = "wss"
	}

	path := b.GetMetadata("path")
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(b.IP, strconv.Itoa(b.Port)),
		Path:   path,
	}
	return u.String()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
