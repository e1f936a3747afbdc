package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds server configuration. Every field can be overridden from the
// environment with a BLOX_ prefix (BLOX_CHAT_ADDR, BLOX_DB_PATH, ...).
type Config struct {
	ChatAddr    string `envconfig:"CHAT_ADDR"`    // TCP bind address for the real-time plane
	HTTPAddr    string `envconfig:"HTTP_ADDR"`    // HTTP bind address for login/admin API
	MetricsAddr string `envconfig:"METRICS_ADDR"` // HTTP bind address for /metrics (empty = disabled)
	DBPath      string `envconfig:"DB_PATH"`      // SQLite database path
	HistoryDir  string `envconfig:"HISTORY_DIR"`  // BadgerDB directory for the message log
	DataDir     string `envconfig:"DATA_DIR"`     // directory for generated certs and data

	TLSEnabled bool   `envconfig:"TLS"`       // serve the chat plane over TLS
	CertFile   string `envconfig:"CERT_FILE"` // TLS certificate path (auto-generated if empty)
	KeyFile    string `envconfig:"KEY_FILE"`  // TLS private key path (auto-generated if empty)

	UsersFile    string   `envconfig:"USERS_FILE"`    // YAML file of users to create on startup
	BlockedWords []string `envconfig:"BLOCKED_WORDS"` // words censored from DMs (empty = disabled)

	HistoryReplayCount int `envconfig:"HISTORY_REPLAY_COUNT"` // messages replayed on admission
	OutboundQueueSize  int `envconfig:"OUTBOUND_QUEUE_SIZE"`  // per-connection outbound event queue

	// CLI-only actions (run and exit)
	ExportUsers bool
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChatAddr:           ":9700",
		HTTPAddr:           ":9701",
		MetricsAddr:        ":9702",
		DBPath:             "bloxstudios.db",
		HistoryDir:         "history",
		DataDir:            ".",
		HistoryReplayCount: 50,
		OutboundQueueSize:  64,
	}
}

// FromEnv returns DefaultConfig overlaid with BLOX_* environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("blox", &cfg); err != nil {
		return cfg, fmt.Errorf("server: read env config: %w", err)
	}
	return cfg, nil
}
