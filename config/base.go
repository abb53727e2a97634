package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// configPathEnv names an optional YAML, TOML or .env file read before the
// environment. Environment variables override values from the file.
const configPathEnv = "CONFIG_PATH"

// minReplayTTL keeps accepted proofs expiring out of the replay set.
const minReplayTTL = time.Second

var ErrInvalidConfig = errors.New("invalid configuration")

type ServerConfig struct {
	Server `yaml:"server" toml:"server"`
	Pow    `yaml:"pow" toml:"pow"`
	Crypto `yaml:"crypto" toml:"crypto"`
}

type ClientConfig struct {
	Client `yaml:"client" toml:"client"`
	Pow    `yaml:"pow" toml:"pow"`
	Crypto `yaml:"crypto" toml:"crypto"`
}

func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Server.ReplayTTL < minReplayTTL {
		return nil, fmt.Errorf("%w: REPLAY_TTL %s is below %s", ErrInvalidConfig, cfg.Server.ReplayTTL, minReplayTTL)
	}
	return cfg, nil
}

func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Client.Identity == "" {
		cfg.Client.Identity = cfg.Client.Name
	}
	return cfg, nil
}

func load(cfg interface{}) error {
	if path := os.Getenv(configPathEnv); path != "" {
		return cleanenv.ReadConfig(path, cfg)
	}
	return cleanenv.ReadEnv(cfg)
}
