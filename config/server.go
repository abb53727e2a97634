package config

import "time"

type Server struct {
	Addr      string        `yaml:"addr" env:"ADDR" env-required:"true"`
	Name      string        `yaml:"name" env:"NAME" env-required:"true"`
	Deadline  time.Duration `yaml:"deadline" env:"DEADLINE" env-default:"30s"`
	KeepAlive time.Duration `yaml:"keep_alive" env:"SERVER_KEEP_ALIVE" env-default:"15s"`
	RateLimit float64       `yaml:"rate_limit" env:"RATE_LIMIT" env-default:"10" env-description:"accepted connections per second"`
	RateBurst int           `yaml:"rate_burst" env:"RATE_BURST" env-default:"20"`
	ReplayTTL time.Duration `yaml:"replay_ttl" env:"REPLAY_TTL" env-default:"10m"`
}
