// Package config loads rtree settings from .rtree.yaml, RTREE_* environment
// variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configName = ".rtree"
	envPrefix  = "RTREE"
)

// Settings is the effective configuration.
type Settings struct {
	Multi       bool          `mapstructure:"multi" yaml:"multi"`
	ShowHidden  bool          `mapstructure:"hidden" yaml:"hidden"`
	IgnoreFiles bool          `mapstructure:"ignore_files" yaml:"ignore_files"`
	Watch       bool          `mapstructure:"watch" yaml:"watch"`
	WatchDelay  time.Duration `mapstructure:"watch_delay" yaml:"watch_delay"`
	LoadTimeout time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	MaxInFlight int64         `mapstructure:"max_in_flight" yaml:"max_in_flight"`
	Output      string        `mapstructure:"output" yaml:"output,omitempty"`
	Format      string        `mapstructure:"format" yaml:"format"`

	Remote RemoteSettings `mapstructure:"remote" yaml:"remote"`
	S3     S3Settings     `mapstructure:"s3" yaml:"s3"`
	Log    LogSettings    `mapstructure:"log" yaml:"log"`
}

// RemoteSettings configure the HTTP tree API source.
type RemoteSettings struct {
	Token    string        `mapstructure:"token" yaml:"token,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries  int           `mapstructure:"retries" yaml:"retries"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// S3Settings configure the bucket source.
type S3Settings struct {
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
	PageSize  int32  `mapstructure:"page_size" yaml:"page_size"`
}

// LogSettings configure internal/logging.
type LogSettings struct {
	File   string `mapstructure:"file" yaml:"file,omitempty"`
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Export formats.
const (
	FormatLines = "lines"
	FormatJSON  = "json"
)

// New returns a viper instance with defaults and environment overrides.
// Every key has a default so Unmarshal sees environment values for it.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("multi", false)
	v.SetDefault("hidden", false)
	v.SetDefault("ignore_files", false)
	v.SetDefault("watch", true)
	v.SetDefault("watch_delay", 150*time.Millisecond)
	v.SetDefault("load_timeout", 30*time.Second)
	v.SetDefault("max_in_flight", 8)
	v.SetDefault("output", "")
	v.SetDefault("format", FormatLines)
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.retries", 3)
	v.SetDefault("remote.cache_ttl", 10*time.Second)
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.page_size", 1000)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result. An explicit file
// must exist; otherwise .rtree.yaml is looked up in RTREE_CONFIG_PATH, the
// home directory and the working directory, and may be absent.
func Load(v *viper.Viper, file string) (Settings, error) {
	if file != "" {
		expanded, err := homedir.Expand(file)
		if err != nil {
			return Settings{}, fmt.Errorf("expand %s: %w", file, err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if override := os.Getenv(envPrefix + "_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the program cannot run with.
func (s Settings) Validate() error {
	switch s.Format {
	case FormatLines, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", s.Format, FormatLines, FormatJSON)
	}
	if s.MaxInFlight < 1 {
		return fmt.Errorf("max_in_flight must be at least 1, got %d", s.MaxInFlight)
	}
	if s.Remote.Retries < 0 {
		return fmt.Errorf("remote.retries must not be negative, got %d", s.Remote.Retries)
	}
	return nil
}

// YAML renders the settings with secrets masked.
func (s Settings) YAML() (string, error) {
	if s.Remote.Token != "" {
		s.Remote.Token = masked
	}
	if s.S3.SecretKey != "" {
		s.S3.SecretKey = masked
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(out), nil
}

const masked = "********"
