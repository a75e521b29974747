package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tendant/hpc-submit/internal/dropbox"
	"github.com/tendant/hpc-submit/pkg/schema"
)

// defaultPopTimeout bounds a single BRPOP round.
const defaultPopTimeout = 5 * time.Second

// Envelope is what workers pop from the Redis job list.
type Envelope struct {
	ID      string     `json:"id"`
	ReplyTo string     `json:"reply_to"`
	Job     schema.Job `json:"job"`
}

// Redis pushes jobs onto a list. Each job gets its own reply list; the
// worker pushes a single schema.Result onto it.
type Redis struct {
	rdb    *redis.Client
	list   string
	logger *slog.Logger
	owned  bool

	popTimeout time.Duration
}

func NewRedis(rdb *redis.Client, list string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{rdb: rdb, list: list, logger: logger, popTimeout: defaultPopTimeout}
}

type redisTicket struct {
	id      string
	replyTo string
}

func (t *redisTicket) JobID() string { return t.id }

func (q *Redis) Submit(ctx context.Context, job schema.Job) (Ticket, error) {
	id := uuid.New().String()
	env := Envelope{ID: id, ReplyTo: q.list + ":result:" + id, Job: job}

	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.list, b).Err(); err != nil {
		return nil, fmt.Errorf("push job to %s: %w", q.list, err)
	}
	q.logger.Debug("job submitted", "job_id", id, "list", q.list, "reply_to", env.ReplyTo, "script", job.Script)
	return &redisTicket{id: id, replyTo: env.ReplyTo}, nil
}

// Await blocks on the reply list until the worker answers or ctx ends.
func (q *Redis) Await(ctx context.Context, t Ticket) (*schema.Result, error) {
	rt, ok := t.(*redisTicket)
	if !ok {
		return nil, wrongTicket(t)
	}

	res, err := q.pop(ctx, rt)
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, &dropbox.ProtocolError{Source: rt.replyTo, Err: fmt.Errorf("unexpected BRPOP reply %v", res)}
	}

	var out schema.Result
	if err := json.Unmarshal([]byte(res[1]), &out); err != nil {
		return nil, &dropbox.ProtocolError{Source: rt.replyTo, Err: err}
	}
	if err := out.Validate(); err != nil {
		return nil, &dropbox.ProtocolError{Source: rt.replyTo, Err: err}
	}
	q.logger.Debug("job finished", "job_id", rt.id, "status", out.Job.Status, "rc", out.Job.RC)
	return &out, nil
}

// pop repeats a bounded BRPOP so cancellation is noticed between rounds;
// go-redis does not interrupt a blocked read when ctx is cancelled.
func (q *Redis) pop(ctx context.Context, rt *redisTicket) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			q.logger.Warn("stopped waiting for job", "job_id", rt.id, "reply_to", rt.replyTo, "err", err)
			return nil, err
		}

		res, err := q.rdb.BRPop(ctx, q.popTimeout, rt.replyTo).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				q.logger.Warn("stopped waiting for job", "job_id", rt.id, "reply_to", rt.replyTo, "err", ctxErr)
				return nil, ctxErr
			}
			return nil, fmt.Errorf("await reply for job %s: %w", rt.id, err)
		}
		return res, nil
	}
}

// Close releases the client if the queue created it.
func (q *Redis) Close() error {
	if q.owned {
		return q.rdb.Close()
	}
	return nil
}
