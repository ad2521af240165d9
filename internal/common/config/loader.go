package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like STORAGE_REDIS_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if not present.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory and the project root,
// so the binary and tests pick it up regardless of where they run.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "studytracker"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = "file"
	}
	if cfg.Storage.FileDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.FileDir = filepath.Join(home, ".studytracker")
		} else {
			cfg.Storage.FileDir = ".studytracker"
		}
	}
	if cfg.Storage.Redis.Address == "" {
		cfg.Storage.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "study-sessions"
	}
	if cfg.Timer.TickIntervalMs == 0 {
		cfg.Timer.TickIntervalMs = 1000
	}
	if cfg.Timer.PersistIntervalMs == 0 {
		cfg.Timer.PersistIntervalMs = 5000
	}
	if cfg.Timer.MinValidSeconds == 0 {
		cfg.Timer.MinValidSeconds = 60
	}
	if cfg.Sync.IntervalMs == 0 {
		cfg.Sync.IntervalMs = 30000
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 3
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Mode {
	case "redis", "file":
	default:
		return fmt.Errorf("storage.mode must be redis or file, got %q", cfg.Storage.Mode)
	}

	if cfg.Timer.TickIntervalMs <= 0 {
		return fmt.Errorf("timer.tick_interval_ms must be positive")
	}
	if cfg.Timer.PersistIntervalMs < cfg.Timer.TickIntervalMs {
		return fmt.Errorf("timer.persist_interval_ms must be >= timer.tick_interval_ms")
	}

	if cfg.Sync.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("sync enabled but database.postgres.host is empty")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("sync enabled but database.postgres.database is empty")
		}
	}

	if cfg.Search.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("search enabled but database.elasticsearch.addresses is empty")
	}

	return nil
}
