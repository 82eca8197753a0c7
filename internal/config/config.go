// Package config loads the server's JWCC (JSON-with-comments) config
// file, following the hujson.Standardize -> json.Unmarshal pattern used
// elsewhere in the wider example corpus for CLI tool config loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"goreldb/internal/log"
)

// Config controls where a server instance stores its data and how it
// logs. No CLI flag overrides these fields; the --log-level and --log-json
// flags configure logging directly and LogLevel/LogJSON are not read by
// cmd/goreldb.
type Config struct {
	DataDir  string    `json:"data_dir"`
	WALDir   string    `json:"wal_dir"`
	LogLevel log.Level `json:"log_level"`
	LogJSON  bool      `json:"log_json"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		DataDir:  "./data",
		WALDir:   "./data/wal",
		LogLevel: log.Info,
		LogJSON:  true,
	}
}

// Load reads path as JWCC and overlays it onto Default(). A missing file
// is not an error: the defaults are returned unchanged, letting a fresh
// install run with zero configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWCC in %s: %w", path, err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config JSON in %s: %w", path, err)
	}
	return cfg, nil
}
