package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/governor/internal/audit"
	"github.com/vietddude/governor/internal/core/config"
	"github.com/vietddude/governor/internal/infra/storage"
	filestore "github.com/vietddude/governor/internal/infra/storage/file"
	"github.com/vietddude/governor/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/governor/internal/infra/storage/redis"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "governor",
	Short: "Governance review reliability layer",
	Long:  `Governor is the reliability layer beneath an automated design-review pipeline: a credential-rotating client for the hosted reviewer plus a crash-safe sharded audit log.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env, loads the YAML config, and initializes logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	return cfg
}

// openStore builds the configured credential store backend.
func openStore(cfg *config.AppConfig) (storage.CredentialRepository, func(), error) {
	switch cfg.Store.Backend {
	case "file", "":
		path := cfg.Store.Path
		if path == "" {
			root, err := audit.FindWorkspaceRoot(".")
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(root, "credentials")
		}
		store, err := filestore.NewStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "postgres":
		db, err := postgres.NewDB(cfg.Store.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewCredentialRepo(db), func() { _ = db.Close() }, nil

	case "redis":
		store, err := redisstore.NewStore(cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// auditDir resolves the shared audit directory: configured value first,
// otherwise <workspace root>/audit.
func auditDir(cfg *config.AppConfig) (string, error) {
	if cfg.Audit.Dir != "" {
		return cfg.Audit.Dir, nil
	}
	root, err := audit.FindWorkspaceRoot(".")
	if err != nil {
		return "", fmt.Errorf("audit dir not configured and %w", err)
	}
	return filepath.Join(root, "audit"), nil
}

// nodeName resolves the originating-node label for audit records.
func nodeName(cfg *config.AppConfig) string {
	if cfg.Audit.Node != "" {
		return cfg.Audit.Node
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
