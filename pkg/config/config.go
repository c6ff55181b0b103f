// Package config loads server settings from flags, an optional .env file
// and the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server
type Config struct {
	Debug bool
	Port  string

	FrontendOrigin string   // allowed websocket Origin; empty allows any
	APIKeys        []string // empty disables authentication

	RedisURL   string // empty disables the archive
	ArchiveTTL time.Duration

	MatchRetention time.Duration // how long ended matches stay joinable
	SweepInterval  time.Duration
	SendBuffer     int
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultArchiveTTL     = 7 * 24 * time.Hour
	DefaultMatchRetention = 10 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultSendBuffer     = 256
)

// Load reads .env when present, then the environment, then args. Flags win
// over the environment.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:           DefaultPort,
		ArchiveTTL:     DefaultArchiveTTL,
		MatchRetention: DefaultMatchRetention,
		SweepInterval:  DefaultSweepInterval,
		SendBuffer:     DefaultSendBuffer,
	}

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		cfg.Port = v
	}
	cfg.FrontendOrigin = strings.TrimSpace(getenv("FRONTEND_ORIGIN"))
	cfg.APIKeys = splitKeys(getenv("API_KEYS"))
	cfg.RedisURL = strings.TrimSpace(getenv("REDIS_URL"))

	var err error
	if cfg.ArchiveTTL, err = durationEnv(getenv, "ARCHIVE_TTL", cfg.ArchiveTTL); err != nil {
		return nil, err
	}
	if cfg.MatchRetention, err = durationEnv(getenv, "MATCH_RETENTION", cfg.MatchRetention); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = durationEnv(getenv, "SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(getenv("SEND_BUFFER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SEND_BUFFER must be a positive integer, got %q", v)
		}
		cfg.SendBuffer = n
	}

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	debug := fset.Bool("debug", false, "enable debug logging")
	port := fset.String("port", cfg.Port, "server port")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	cfg.Debug = *debug
	cfg.Port = *port

	if cfg.SweepInterval <= 0 {
		return nil, errors.New("SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}

func durationEnv(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return d, nil
}

// splitKeys splits a comma-separated list of API keys
func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}

	return keys
}
