package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "HEALTH_SESSIONS"

// Config is the resolved application configuration
type Config struct {
	Store          string        `mapstructure:"store"`
	DSN            string        `mapstructure:"dsn"`
	ReadOnly       bool          `mapstructure:"read_only"`
	Checkpoint     string        `mapstructure:"checkpoint"`
	Debug          bool          `mapstructure:"debug"`
	LogFile        string        `mapstructure:"log_file"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	ServiceTimeout time.Duration `mapstructure:"service_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	Sample         SampleConfig  `mapstructure:"sample"`
}

// SampleConfig describes the record built by the "add session" action
type SampleConfig struct {
	Name     string        `mapstructure:"name"`
	Duration time.Duration `mapstructure:"duration"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", "memory")
	v.SetDefault("dsn", "")
	v.SetDefault("read_only", false)
	v.SetDefault("checkpoint", "")
	v.SetDefault("debug", false)
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("service_timeout", 30*time.Second)
	v.SetDefault("queue_size", 16)
	v.SetDefault("sample.name", "Morning run")
	v.SetDefault("sample.duration", 30*time.Minute)
}

// Load reads configuration from .env, an optional YAML file, the
// environment (HEALTH_SESSIONS_*), and finally any flags bound in flags.
// cfgFile may be empty, in which case ./config.yaml is used if present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flag name -> config key
var flagKeys = map[string]string{
	"store":        "store",
	"dsn":          "dsn",
	"read-only":    "read_only",
	"checkpoint":   "checkpoint",
	"debug":        "debug",
	"log-file":     "log_file",
	"metrics-addr": "metrics_addr",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
