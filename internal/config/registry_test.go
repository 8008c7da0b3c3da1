package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if filepath.Base(configDir) != "rfmsg" {
		t.Errorf("GetConfigDir() = %v, should end in 'rfmsg'", configDir)
	}

	switch runtime.GOOS {
	case "linux":
		if configDir != filepath.Join("/tmp/xdg-test", "rfmsg") {
			t.Errorf("XDG_CONFIG_HOME not honoured, got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != CurrentVersion {
		t.Errorf("NewRegistry().Version = %v, want %v", reg.Version, CurrentVersion)
	}
	if reg.Pumps == nil {
		t.Error("NewRegistry().Pumps should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if reg.Preferences.SerialBaud != 115200 {
		t.Errorf("SerialBaud = %v, want 115200", reg.Preferences.SerialBaud)
	}
	if reg.Preferences.CaptureFormat != CaptureFormatJSONL {
		t.Errorf("CaptureFormat = %q, want %q", reg.Preferences.CaptureFormat, CaptureFormatJSONL)
	}
}

func TestRegistryUpdatePumpLastSeen(t *testing.T) {
	reg := NewRegistry()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	reg.UpdatePumpLastSeen("a1b2c3", "ws://bridge.local/packets", at)

	pump := reg.GetPump("a1b2c3")
	if pump == nil {
		t.Fatal("pump should exist after UpdatePumpLastSeen()")
	}
	if !pump.LastSeen.Equal(at) {
		t.Errorf("LastSeen = %v, want %v", pump.LastSeen, at)
	}
	if pump.LastBridge != "ws://bridge.local/packets" {
		t.Errorf("LastBridge = %v", pump.LastBridge)
	}
	if reg.GetPump("000000") != nil {
		t.Error("unknown pump should be nil")
	}
}

func TestRegistryNicknameAndLabel(t *testing.T) {
	reg := NewRegistry()

	if got := reg.Label("a1b2c3"); got != "a1b2c3" {
		t.Errorf("Label() without nickname = %q", got)
	}

	reg.SetPumpNickname("a1b2c3", "Night pump")
	reg.SetPumpModel("a1b2c3", "522")

	if got := reg.Label("a1b2c3"); got != "Night pump" {
		t.Errorf("Label() = %q, want 'Night pump'", got)
	}
	if got := reg.GetPump("a1b2c3").Model; got != "522" {
		t.Errorf("Model = %q, want '522'", got)
	}
}

func TestRegistryAddresses(t *testing.T) {
	reg := NewRegistry()
	reg.SetPumpNickname("ffffff", "b")
	reg.SetPumpNickname("000001", "a")

	got := reg.Addresses()
	if len(got) != 2 || got[0] != "000001" || got[1] != "ffffff" {
		t.Errorf("Addresses() = %v", got)
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.UpdatePumpLastSeen("a1b2c3", "bridge", time.Unix(int64(i), 0))
		}(i)
	}
	wg.Wait()

	if len(reg.Addresses()) != 1 {
		t.Errorf("expected one pump, got %v", reg.Addresses())
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	testConfigPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.SetPumpNickname("a1b2c3", "Test Pump")
	reg.UpdatePumpLastSeen("a1b2c3", "serial:/dev/ttyUSB0", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	reg.Preferences.CatalogPath = "/etc/rfmsg/catalog.yaml"

	if err := reg.SaveTo(testConfigPath); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(testConfigPath)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# rfmsg configuration file") {
		t.Error("saved config should start with the header comment")
	}
	if _, err := os.Stat(testConfigPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadRegistryFrom(testConfigPath)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	pump := loaded.GetPump("a1b2c3")
	if pump == nil {
		t.Fatal("pump should exist in loaded registry")
	}
	if pump.Nickname != "Test Pump" {
		t.Errorf("Loaded nickname = %v, want 'Test Pump'", pump.Nickname)
	}
	if pump.LastBridge != "serial:/dev/ttyUSB0" {
		t.Errorf("Loaded bridge = %v", pump.LastBridge)
	}
	if loaded.Preferences.CatalogPath != "/etc/rfmsg/catalog.yaml" {
		t.Errorf("Loaded catalog path = %v", loaded.Preferences.CatalogPath)
	}
}

func TestLoadRegistryFrom_Missing(t *testing.T) {
	reg, err := LoadRegistryFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if reg.Version != CurrentVersion || reg.Preferences == nil {
		t.Error("missing file should yield a default registry")
	}
}

func TestLoadRegistryFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"bad yaml", "version: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRegistryFrom(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadRegistryFrom_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Pumps == nil {
		t.Error("Pumps map should be initialized")
	}
	if reg.Preferences == nil || reg.Preferences.DiscoverTimeout != 5 {
		t.Error("Preferences should be filled with defaults")
	}
}

func BenchmarkUpdatePumpLastSeen(b *testing.B) {
	reg := NewRegistry()
	now := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.UpdatePumpLastSeen("a1b2c3", "bridge", now)
	}
}
