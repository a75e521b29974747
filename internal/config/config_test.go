package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HPC_QUEUE_BACKEND", "HPC_DROPBOX", "HPC_POLL_INTERVAL", "HPC_TIMEOUT", "NATS_URL", "HPC_JOB_SUBJECT", "REDIS_URL", "HPC_REDIS_QUEUE"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendDropbox, cfg.Backend)
	assert.Equal(t, "", cfg.Dropbox)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "hpc.jobs", cfg.JobSubject)
	assert.Equal(t, "redis://127.0.0.1:6379/0", cfg.RedisURL)
	assert.Equal(t, "hpc:jobs", cfg.RedisQueue)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HPC_QUEUE_BACKEND", "NATS")
	t.Setenv("HPC_DROPBOX", "/srv/dropbox")
	t.Setenv("HPC_POLL_INTERVAL", "250ms")
	t.Setenv("HPC_TIMEOUT", "2h")
	t.Setenv("HPC_JOB_SUBJECT", "cluster.jobs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendNATS, cfg.Backend)
	assert.Equal(t, "/srv/dropbox", cfg.Dropbox)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.Timeout)
	assert.Equal(t, "cluster.jobs", cfg.JobSubject)
}

func TestLoadRedisBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("HPC_QUEUE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("HPC_REDIS_QUEUE", "cluster:jobs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "cluster:jobs", cfg.RedisQueue)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "HPC_QUEUE_BACKEND", "kafka"},
		{"unparsable poll interval", "HPC_POLL_INTERVAL", "ten seconds"},
		{"zero poll interval", "HPC_POLL_INTERVAL", "0s"},
		{"negative timeout", "HPC_TIMEOUT", "-1m"},
		{"unparsable timeout", "HPC_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
