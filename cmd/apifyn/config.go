package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all apifyn server configuration.
// Priority: APIFYN_* env vars > config file > defaults.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	BaseURL    string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // libsql | postgres
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

type EngineConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

type IntegrationsConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	HuggingFaceAPIKey   string        `mapstructure:"huggingface_api_key"`
	HuggingFaceModelURL string        `mapstructure:"huggingface_model_url"`
}

type SecretsConfig struct {
	Key string `mapstructure:"key"` // hex-encoded AES-256 key
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Exporter       string        `mapstructure:"exporter"` // stdout | otlp
	Endpoint       string        `mapstructure:"endpoint"`
	ServiceName    string        `mapstructure:"service_name"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

func apifynDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".apifyn"
	}
	return filepath.Join(home, ".apifyn")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":5000")
	v.SetDefault("server.base_url", "")
	v.SetDefault("database.driver", "libsql")
	v.SetDefault("database.path", "file:"+filepath.Join(apifynDir(), "apifyn.db"))
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("engine.pool_size", 10)
	v.SetDefault("integrations.timeout", 30*time.Second)
	v.SetDefault("integrations.huggingface_api_key", "")
	v.SetDefault("integrations.huggingface_model_url", "")
	v.SetDefault("secrets.key", "")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", 60*time.Second)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "apifyn")
	v.SetDefault("telemetry.metric_interval", 60*time.Second)
}

// loadConfig layers defaults, the config file and the environment. An empty
// file means config.yaml in the working directory or ~/.apifyn, if present.
func loadConfig(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APIFYN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("integrations.huggingface_api_key", "APIFYN_INTEGRATIONS_HUGGINGFACE_API_KEY", "HUGGINGFACE_API_KEY"); err != nil {
		return Config{}, err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(apifynDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	// Derive base_url from listen_addr if empty.
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost" + cfg.Server.ListenAddr
	}
	if cfg.Engine.PoolSize <= 0 {
		cfg.Engine.PoolSize = 10
	}
	return cfg, nil
}
