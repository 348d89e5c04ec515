// Package config loads process-level bootstrap configuration: where the
// Docker daemon lives, where durable state is stored, and file permissions.
// The policy configuration the decision engine consults (modes, cooldowns,
// selection lists, ...) is NOT here — that is durable, hot-reloadable state
// owned by internal/store.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/arcane-autoheal/autoheal/internal/common"
)

// Config is process bootstrap configuration, read once at startup from the
// environment.
type Config struct {
	// DockerHost is the Docker daemon endpoint. Empty means use the
	// client library's platform default.
	DockerHost string
	// DataDir is the directory holding config.json, events.json,
	// restart_counts.json, quarantine.json and maintenance.json.
	DataDir string
	// FilePerm / DirPerm are applied to every file/directory the store
	// creates.
	FilePerm os.FileMode
	DirPerm  os.FileMode
	// HTTPAddr is the bind address for the inspection HTTP surface.
	HTTPAddr string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. It also updates the shared common.FilePerm/common.DirPerm
// package vars so lower-level file writers pick up the same permissions.
func Load() *Config {
	cfg := &Config{
		DockerHost: os.Getenv("DOCKER_HOST"),
		DataDir:    envOrDefault("AUTOHEAL_DATA_DIR", "data"),
		FilePerm:   parsePerm(os.Getenv("FILE_PERM"), 0644),
		DirPerm:    parsePerm(os.Getenv("DIR_PERM"), 0755),
		HTTPAddr:   envOrDefault("AUTOHEAL_HTTP_ADDR", ":8089"),
	}

	common.FilePerm = cfg.FilePerm
	common.DirPerm = cfg.DirPerm

	return cfg
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parsePerm(raw string, def os.FileMode) os.FileMode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return def
	}
	return os.FileMode(v)
}
