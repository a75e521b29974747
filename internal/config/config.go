// Package config reads submitter settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	BackendDropbox = "dropbox"
	BackendNATS    = "nats"
	BackendRedis   = "redis"
)

// Config holds the settings shared by every submit command.
type Config struct {
	Backend      string
	Dropbox      string
	PollInterval time.Duration
	// Timeout bounds the whole submit and wait. Zero waits forever.
	Timeout    time.Duration
	NATSURL    string
	JobSubject string
	RedisURL   string
	RedisQueue string
}

func Load() (Config, error) {
	cfg := Config{
		Backend:    strings.ToLower(getenv("HPC_QUEUE_BACKEND", BackendDropbox)),
		Dropbox:    getenv("HPC_DROPBOX", ""),
		NATSURL:    getenv("NATS_URL", "nats://127.0.0.1:4222"),
		JobSubject: getenv("HPC_JOB_SUBJECT", "hpc.jobs"),
		RedisURL:   getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		RedisQueue: getenv("HPC_REDIS_QUEUE", "hpc:jobs"),
	}

	switch cfg.Backend {
	case BackendDropbox, BackendNATS, BackendRedis:
	default:
		return Config{}, fmt.Errorf("invalid HPC_QUEUE_BACKEND %q: want %s, %s or %s", cfg.Backend, BackendDropbox, BackendNATS, BackendRedis)
	}

	poll, err := parseDuration(getenv("HPC_POLL_INTERVAL", "10s"), "HPC_POLL_INTERVAL")
	if err != nil {
		return Config{}, err
	}
	if poll <= 0 {
		return Config{}, fmt.Errorf("HPC_POLL_INTERVAL must be greater than zero (got %s)", poll)
	}
	cfg.PollInterval = poll

	timeout, err := parseDuration(getenv("HPC_TIMEOUT", "0"), "HPC_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	if timeout < 0 {
		return Config{}, fmt.Errorf("HPC_TIMEOUT must not be negative (got %s)", timeout)
	}
	cfg.Timeout = timeout

	return cfg, nil
}

func parseDuration(value, name string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
