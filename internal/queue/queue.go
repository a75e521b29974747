// Package queue hides how a job reaches the cluster. Callers submit and then
// await a result without knowing whether a dropbox directory or a broker
// sits in between.
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/hpc-submit/internal/bus"
	"github.com/tendant/hpc-submit/internal/config"
	"github.com/tendant/hpc-submit/internal/dropbox"
	"github.com/tendant/hpc-submit/pkg/schema"
)

// Ticket identifies a submitted job within the queue that issued it.
type Ticket interface {
	JobID() string
}

type Queue interface {
	Submit(ctx context.Context, job schema.Job) (Ticket, error)
	// Await blocks until the worker reports back or ctx ends.
	Await(ctx context.Context, t Ticket) (*schema.Result, error)
	Close() error
}

// Open builds the queue selected by cfg.Backend.
func Open(cfg config.Config, logger *slog.Logger) (Queue, error) {
	switch cfg.Backend {
	case "", config.BackendDropbox:
		c, err := dropbox.New(cfg.Dropbox,
			dropbox.WithPollInterval(cfg.PollInterval),
			dropbox.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return NewDropbox(c), nil
	case config.BackendNATS:
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS %s: %w", cfg.NATSURL, err)
		}
		q := NewNATS(nc, cfg.JobSubject, logger)
		q.owned = true
		return q, nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts.ContextTimeoutEnabled = true
		q := NewRedis(redis.NewClient(opts), cfg.RedisQueue, logger)
		q.owned = true
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Backend)
	}
}

func wrongTicket(t Ticket) error {
	return fmt.Errorf("ticket %T was not issued by this queue", t)
}
