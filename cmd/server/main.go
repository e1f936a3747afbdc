package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/history"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/logging"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/server"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/version"
)

func main() {
	// Optional .env file; environment takes precedence over defaults,
	// flags take precedence over both.
	_ = godotenv.Load()

	cfg, err := server.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ChatAddr, "chat", cfg.ChatAddr, "TCP/TLS chat plane bind address")
	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP bind address for the login/admin API")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file path")
	flag.StringVar(&cfg.HistoryDir, "history", cfg.HistoryDir, "Message history directory")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory for generated files")
	flag.BoolVar(&cfg.TLSEnabled, "tls", cfg.TLSEnabled, "Serve the chat plane over TLS")
	flag.StringVar(&cfg.CertFile, "cert", cfg.CertFile, "TLS certificate file (auto-generated if empty)")
	flag.StringVar(&cfg.KeyFile, "key", cfg.KeyFile, "TLS private key file (auto-generated if empty)")
	flag.StringVar(&cfg.UsersFile, "users-file", cfg.UsersFile, "YAML file defining users to create on startup")
	flag.BoolVar(&cfg.ExportUsers, "export-users", false, "Export all users as YAML and exit")

	showVersion := flag.Bool("version", false, "Print version and exit")
	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if *showVersion {
		fmt.Println("bloxstudios-server " + version.Full())
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	// Handle export command (run and exit)
	if cfg.ExportUsers {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			slog.Error("open database", "err", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := server.ExportUsersYAML(st, os.Stdout); err != nil {
			slog.Error("export users", "err", err)
			os.Exit(1)
		}
		return
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	hist, err := history.Open(cfg.HistoryDir)
	if err != nil {
		slog.Error("open message history", "err", err)
		_ = st.Close()
		os.Exit(1)
	}

	slog.Info("starting bloxstudios server", "version", version.String())

	srv, err := server.New(cfg, server.Dependencies{Store: st, History: hist})
	if err != nil {
		slog.Error("server init error", "err", err)
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
