package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis      Redis     `yaml:"redis"`
	Game       Game      `yaml:"game"`
	Chat       Chat      `yaml:"chat"`
	WebSocket  WebSocket `yaml:"websocket"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Game struct {
	TurnDuration  time.Duration `yaml:"turn-duration" env:"GAME_TURN_DURATION" env-default:"30s"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"GAME_SWEEP_INTERVAL" env-default:"1s"`
}

type Chat struct {
	HistoryLimit int `yaml:"history-limit" env:"CHAT_HISTORY_LIMIT" env-default:"100"`
}

type WebSocket struct {
	RatePerSecond float64 `yaml:"rate-per-second" env:"WEBSOCKET_RATE_PER_SECOND" env-default:"10"`
	Burst         int     `yaml:"burst" env:"WEBSOCKET_BURST" env-default:"20"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
