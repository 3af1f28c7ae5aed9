// Package config loads cmd/collabd's daemon configuration from a YAML
// file plus environment variable overrides, the same flag-and-struct
// shape cmd/warren/main.go uses for its persistent flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of a collabd daemon process.
type Config struct {
	// DataDir is where the embedded store's database file and zip import
	// scratch space live.
	DataDir string `yaml:"data_dir"`

	// ListenAddr is the TCP address the sync protocol listener binds.
	ListenAddr string `yaml:"listen_addr"`

	// AdminSocket is the Unix domain socket path serving the read-only
	// admin gRPC surface (internal/adminpb, gated by
	// pkg/api.ReadOnlyInterceptor).
	AdminSocket string `yaml:"admin_socket"`

	// AdminAddr is the TCP address serving the full (read-write) admin
	// gRPC surface, left empty to disable it.
	AdminAddr string `yaml:"admin_addr"`

	// MetricsAddr is the HTTP address serving /health, /ready and
	// /metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	// UID and WorkspaceID scope the single logical workspace this daemon
	// process serves (spec.md's persistence keys are always scoped to a
	// uid/workspace pair).
	UID         string `yaml:"uid"`
	WorkspaceID string `yaml:"workspace_id"`

	// ClientID is this daemon's CRDT client id, used to tag locally
	// originated transactions.
	ClientID uint64 `yaml:"client_id"`

	// AutoRepair enables internal/persistence.OpenOptions.AutoRepair.
	AutoRepair bool `yaml:"auto_repair"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the configuration a freshly initialized single-node
// daemon starts from.
func Default() *Config {
	return &Config{
		DataDir:     "./collabd-data",
		ListenAddr:  "127.0.0.1:7946",
		AdminSocket: "./collabd-data/admin.sock",
		MetricsAddr: "127.0.0.1:9090",
		UID:         "default",
		WorkspaceID: "default",
		ClientID:    1,
		LogLevel:    "info",
	}
}

// Load reads path as YAML into a Config seeded with Default(), then
// applies COLLABD_*-prefixed environment variable overrides. A missing
// file is not an error: the defaults (plus any env overrides) are
// returned as-is, matching cmd/warren's "flags have sane defaults, file
// is optional" posture.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COLLABD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("COLLABD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("COLLABD_ADMIN_SOCKET"); v != "" {
		cfg.AdminSocket = v
	}
	if v := os.Getenv("COLLABD_ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}
	if v := os.Getenv("COLLABD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("COLLABD_UID"); v != "" {
		cfg.UID = v
	}
	if v := os.Getenv("COLLABD_WORKSPACE_ID"); v != "" {
		cfg.WorkspaceID = v
	}
	if v := os.Getenv("COLLABD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("COLLABD_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
}
