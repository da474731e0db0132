package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	DatabaseURL    string
	QueuePath      string
	CatalogPath    string
	DatasetPath    string
	NATSURL        string
	SyncInterval   time.Duration
	SyncRatePerSec float64
	LogLevel       string
	LogFormat      string
	ServiceName    string
}

// SetDefaults registers every key with its default so environment
// variables are picked up even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("queue_path", "data/queue.db")
	v.SetDefault("catalog_path", "")
	v.SetDefault("dataset_path", "")
	v.SetDefault("nats_url", "")
	v.SetDefault("sync_interval", "30s")
	v.SetDefault("sync_rate_per_sec", 5.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("service_name", "detailinfra-api")
}

// Load reads configuration from defaults, the optional YAML file at path
// and the environment. DETAIL_-prefixed variables override file values;
// DATABASE_URL and PORT are honored without the prefix too.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-owned viper instance, so command-line flags
// bound to v take part in the lookup.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("DETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_url", "DETAIL_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", "DETAIL_PORT", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Port:           strings.TrimSpace(v.GetString("port")),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		QueuePath:      v.GetString("queue_path"),
		CatalogPath:    v.GetString("catalog_path"),
		DatasetPath:    v.GetString("dataset_path"),
		NATSURL:        strings.TrimSpace(v.GetString("nats_url")),
		SyncInterval:   v.GetDuration("sync_interval"),
		SyncRatePerSec: v.GetFloat64("sync_rate_per_sec"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		LogFormat:      strings.ToLower(v.GetString("log.format")),
		ServiceName:    v.GetString("service_name"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	if c.QueuePath == "" {
		errs = append(errs, errors.New("queue_path is empty"))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync_interval must be positive, got %s", c.SyncInterval))
	}
	if c.SyncRatePerSec < 0 {
		errs = append(errs, fmt.Errorf("sync_rate_per_sec must not be negative, got %v", c.SyncRatePerSec))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.LogFormat))
	}
	return errors.Join(errs...)
}
