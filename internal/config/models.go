package config

import (
	"sort"
	"sync"
	"time"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Capture formats accepted in Preferences.CaptureFormat
const (
	CaptureFormatJSONL = "jsonl"
	CaptureFormatCBOR  = "cbor"
)

// Registry represents the entire user configuration file.
// It stores user-defined metadata for pumps and application preferences.
type Registry struct {
	Version     int              `yaml:"version"`
	Pumps       map[string]*Pump `yaml:"pumps,omitempty"` // Keyed by six-digit hex address
	Preferences *Preferences     `yaml:"preferences,omitempty"`

	mu sync.Mutex
}

// Pump represents user-defined metadata for a single pump.
type Pump struct {
	Nickname   string    `yaml:"nickname,omitempty"`    // User-friendly name
	Model      string    `yaml:"model,omitempty"`       // Model number reported by GetPumpModel
	LastSeen   time.Time `yaml:"last_seen,omitempty"`   // Last time a packet from this address was decoded
	LastBridge string    `yaml:"last_bridge,omitempty"` // Bridge or remote address that delivered it
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	CatalogPath     string `yaml:"catalog_path,omitempty"`   // Message catalog file, embedded catalog when empty
	BridgeURL       string `yaml:"bridge_url,omitempty"`     // Default websocket bridge
	SerialPort      string `yaml:"serial_port,omitempty"`    // Default serial bridge device
	SerialBaud      int    `yaml:"serial_baud"`              // Serial bridge baud rate
	DiscoverTimeout int    `yaml:"discover_timeout"`         // mDNS discovery timeout in seconds
	CaptureDir      string `yaml:"capture_dir,omitempty"`    // Directory for capture files
	CaptureFormat   string `yaml:"capture_format,omitempty"` // "jsonl" or "cbor"
}

func defaultPreferences() *Preferences {
	return &Preferences{
		SerialBaud:      115200,
		DiscoverTimeout: 5,
		CaptureFormat:   CaptureFormatJSONL,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Pumps:       make(map[string]*Pump),
		Preferences: defaultPreferences(),
	}
}

// GetPump retrieves pump metadata by address.
// Returns nil if the pump doesn't exist in the registry.
func (r *Registry) GetPump(address string) *Pump {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Pumps[address]
}

// ensurePump must be called with r.mu held.
func (r *Registry) ensurePump(address string) *Pump {
	if r.Pumps == nil {
		r.Pumps = make(map[string]*Pump)
	}
	if pump, exists := r.Pumps[address]; exists {
		return pump
	}
	pump := &Pump{}
	r.Pumps[address] = pump
	return pump
}

// UpdatePumpLastSeen records that a packet from address arrived through bridge.
func (r *Registry) UpdatePumpLastSeen(address, bridge string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pump := r.ensurePump(address)
	pump.LastSeen = at
	pump.LastBridge = bridge
}

// SetPumpNickname sets a user-friendly nickname for a pump.
func (r *Registry) SetPumpNickname(address, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensurePump(address).Nickname = nickname
}

// SetPumpModel records the model number for a pump.
func (r *Registry) SetPumpModel(address, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensurePump(address).Model = model
}

// Label returns the nickname for address, or the address itself.
func (r *Registry) Label(address string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pump, ok := r.Pumps[address]; ok && pump.Nickname != "" {
		return pump.Nickname
	}
	return address
}

// Addresses returns the known pump addresses in sorted order.
func (r *Registry) Addresses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Pumps))
	for addr := range r.Pumps {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
