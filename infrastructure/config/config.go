// Package config holds the device-binding configuration (spec §6:
// "Configuration (enumerated)") and its validation, grounded on the
// teacher's settings/server/server_json_file_configuration layering
// (resolver -> reader -> manager), simplified to a single static device
// binding rather than a multi-client server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

// PollInterval is restricted to the enumerated values in spec §6.
type PollInterval int

const (
	PollDisabled PollInterval = 0
	Poll30s      PollInterval = 30
	Poll60s      PollInterval = 60
	Poll120s     PollInterval = 120
)

var validPollIntervals = map[PollInterval]bool{
	PollDisabled: true, Poll30s: true, Poll60s: true, Poll120s: true,
}

// Config is the immutable-after-construction device binding from spec §3.
type Config struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	DeviceID string `json:"deviceId"`
	// LocalKey is the raw configured key string, HTML-entity-decoded and
	// UTF-8-byte-sliced into LocalKeyBytes by Validate.
	LocalKey      string       `json:"localKey"`
	ProtocolRaw   int          `json:"protocol"`
	PollInterval  PollInterval `json:"poll_interval_sec"`
	AutoReconnect bool         `json:"auto_reconnect"`
	UseHeartbeat  bool         `json:"use_heartbeat"`

	// Derived fields, populated by Validate.
	Protocol     application.Protocol `json:"-"`
	LocalKeyBytes []byte              `json:"-"`
}

const defaultPort = 6668
const deviceIDLen = 20

// Default returns a Config with spec §6's documented defaults for every
// optional field.
func Default() Config {
	return Config{
		Port:          defaultPort,
		ProtocolRaw:   33,
		PollInterval:  PollDisabled,
		AutoReconnect: true,
		UseHeartbeat:  false,
	}
}

// Validate checks required fields and populates the derived Protocol and
// LocalKeyBytes. It must be called once before a Config is used to build a
// session.
func (c *Config) Validate() error {
	if c.IP == "" {
		return fmt.Errorf("%w: ip is required", application.ErrConfig)
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if len(c.DeviceID) != deviceIDLen {
		return fmt.Errorf("%w: deviceId must be %d characters, got %d", application.ErrConfig, deviceIDLen, len(c.DeviceID))
	}

	decoded := decodeHTMLEntities(c.LocalKey)
	keyBytes := []byte(decoded)
	if len(keyBytes) != 16 {
		return fmt.Errorf("%w: localKey must decode to 16 bytes, got %d", application.ErrConfig, len(keyBytes))
	}
	c.LocalKeyBytes = keyBytes

	protocol, err := application.ParseProtocol(c.ProtocolRaw)
	if err != nil {
		return err
	}
	c.Protocol = protocol

	if !validPollIntervals[c.PollInterval] {
		return fmt.Errorf("%w: poll_interval_sec must be one of 0,30,60,120, got %d", application.ErrConfig, c.PollInterval)
	}

	return nil
}

// decodeHTMLEntities reverses the single HTML entity spec §3 calls out
// ("&lt;" pre-decoded) plus its siblings, since a key pasted from a web
// config form may carry any of the standard XML-predefined entities.
func decodeHTMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return replacer.Replace(s)
}

// Loader resolves a configuration file path and decodes it into a Config,
// grounded on the teacher's resolver+reader split
// (server_json_file_configuration): resolving "where" is kept separate
// from "how to parse" so tests can substitute a fixed path without
// touching the decode logic.
type Loader struct {
	resolver pathResolver
}

type pathResolver interface {
	resolve() (string, error)
}

type fixedPathResolver struct{ path string }

func (r fixedPathResolver) resolve() (string, error) { return r.path, nil }

func NewLoader(path string) *Loader {
	return &Loader{resolver: fixedPathResolver{path: path}}
}

// Load reads and validates the configuration at the resolved path.
func (l *Loader) Load() (Config, error) {
	path, err := l.resolver.resolve()
	if err != nil {
		return Config{}, fmt.Errorf("%w: resolve config path: %v", application.ErrConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config %s: %v", application.ErrConfig, path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config %s: %v", application.ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
