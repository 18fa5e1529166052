package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

func TestValidateSucceedsAndDerivesFields(t *testing.T) {
	c := Default()
	c.IP = "192.168.1.50"
	c.DeviceID = "bf1234567890abcdef12"
	c.LocalKey = "1234567890abcdef"
	c.ProtocolRaw = 33

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Protocol != application.V33 {
		t.Errorf("Protocol = %v, want V33", c.Protocol)
	}
	if len(c.LocalKeyBytes) != 16 {
		t.Errorf("LocalKeyBytes length = %d, want 16", len(c.LocalKeyBytes))
	}
}

func TestValidateDecodesHTMLEntity(t *testing.T) {
	c := Default()
	c.IP = "1.2.3.4"
	c.DeviceID = "bf1234567890abcdef12"
	c.LocalKey = "123456789&lt;abcdef" // decodes "&lt;" -> "<", 16 bytes total
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if string(c.LocalKeyBytes) != "123456789<abcdef" {
		t.Errorf("decoded key = %q", c.LocalKeyBytes)
	}
}

func TestValidateRejectsBadDeviceIDLength(t *testing.T) {
	c := Default()
	c.IP = "1.2.3.4"
	c.DeviceID = "tooshort"
	c.LocalKey = "1234567890abcdef"
	err := c.Validate()
	if !errors.Is(err, application.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidateRejectsBadKeyLength(t *testing.T) {
	c := Default()
	c.IP = "1.2.3.4"
	c.DeviceID = "bf1234567890abcdef12"
	c.LocalKey = "short"
	err := c.Validate()
	if !errors.Is(err, application.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidateRejectsBadProtocol(t *testing.T) {
	c := Default()
	c.IP = "1.2.3.4"
	c.DeviceID = "bf1234567890abcdef12"
	c.LocalKey = "1234567890abcdef"
	c.ProtocolRaw = 99
	err := c.Validate()
	if !errors.Is(err, application.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoaderReadsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	cfg := map[string]any{
		"ip":       "10.0.0.5",
		"deviceId": "bf1234567890abcdef12",
		"localKey": "1234567890abcdef",
		"protocol": 34,
	}
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Protocol != application.V34 {
		t.Errorf("Protocol = %v, want V34", loaded.Protocol)
	}
	if loaded.Port != defaultPort {
		t.Errorf("Port = %d, want default %d", loaded.Port, defaultPort)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/conf.json").Load()
	if !errors.Is(err, application.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
