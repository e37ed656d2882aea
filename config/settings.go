package config

import (
	"fmt"
	"os"

	"webpconv/models"

	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML settings file. Environment variables
// override the matching fields after the file is read.
type Settings struct {
	Encoder  string                   `yaml:"encoder"`
	Defaults models.ConversionOptions `yaml:"defaults"`
	Publish  PublishConfig            `yaml:"publish"`
	Redis    RedisConfig              `yaml:"redis"`
	Server   ServerConfig             `yaml:"server"`
	Watch    WatchConfig              `yaml:"watch"`
}

// PublishConfig selects where converted files are mirrored after conversion
type PublishConfig struct {
	Backend        string            `yaml:"backend"`         // s3, gcs, sftp, minio, local; empty disables
	CredentialsKey string            `yaml:"credentials_key"` // key in the credentials store
	Prefix         string            `yaml:"prefix"`          // object key / remote dir prefix
	Settings       map[string]string `yaml:"settings"`        // inline access info; stored credentials win on conflicts
}

// Enabled reports whether a publish backend is configured
func (p PublishConfig) Enabled() bool {
	return p.Backend != ""
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	JWTSecret  string `yaml:"jwt_secret"`
	Issuer     string `yaml:"issuer"`
}

type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// DefaultSettings returns the settings used when no file is given
func DefaultSettings() *Settings {
	return &Settings{
		Encoder:  "native",
		Defaults: models.DefaultOptions(),
		Redis:    RedisConfig{Channel: "webpconv:progress"},
		Server:   ServerConfig{ListenAddr: ":8080"},
		Watch:    WatchConfig{DebounceMillis: 500},
	}
}

// Load reads the settings file at path. An empty path yields defaults.
// Environment variables are applied last.
func Load(path string) (*Settings, error) {
	cfg := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("WEBPCONV_ENCODER"); v != "" {
		s.Encoder = v
	}
	if v := os.Getenv("WEBPCONV_LISTEN_ADDR"); v != "" {
		s.Server.ListenAddr = v
	}
	if v := os.Getenv("WEBPCONV_JWT_SECRET"); v != "" {
		s.Server.JWTSecret = v
	}
	if v := os.Getenv("WEBPCONV_REDIS_ADDR"); v != "" {
		s.Redis.Addr = v
	}
	if v := os.Getenv("WEBPCONV_REDIS_CHANNEL"); v != "" {
		s.Redis.Channel = v
	}
}

// Validate checks fields that would otherwise fail late at run time
func (s *Settings) Validate() error {
	switch s.Publish.Backend {
	case "", "s3", "gcs", "sftp", "minio", "local":
	default:
		return fmt.Errorf("publish.backend %q is not supported", s.Publish.Backend)
	}
	if s.Defaults.Quality != 0 && (s.Defaults.Quality < 1 || s.Defaults.Quality > 100) {
		return fmt.Errorf("defaults.quality must be between 1 and 100")
	}
	if s.Watch.DebounceMillis < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative")
	}
	return nil
}
