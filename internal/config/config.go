// Package config loads the server's environment configuration. A
// local .env file is honored when present; real deployments set the
// variables directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the adapters consume
type Config struct {
	ListenAddr       string
	GamesTable       string
	ConnectionsTable string
	ChannelEndpoint  string
	TimerTarget      string
	TimerRole        string
	RedisAddr        string
	TurnTimeout      time.Duration
}

// Load reads .env (if any) and the environment
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		GamesTable:       getenv("GAMES_TABLE", "trump304-games"),
		ConnectionsTable: getenv("CONNECTIONS_TABLE", "trump304-connections"),
		ChannelEndpoint:  getenv("CHANNEL_ENDPOINT", "ws://localhost:8080/ws"),
		TimerTarget:      getenv("TIMER_TARGET", ""),
		TimerRole:        getenv("TIMER_ROLE", ""),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		TurnTimeout:      getDuration("TURN_TIMEOUT_SECONDS", 30*time.Second),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
