package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tendant/hpc-submit/internal/bus"
	"github.com/tendant/hpc-submit/internal/dropbox"
	"github.com/tendant/hpc-submit/pkg/schema"
)

// NATS sends jobs as JSON requests on a subject. A worker replies exactly
// once, with a schema.Result, on the request's reply inbox.
type NATS struct {
	bus     *bus.Client
	subject string
	logger  *slog.Logger
	owned   bool
}

func NewNATS(c *bus.Client, subject string, logger *slog.Logger) *NATS {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{bus: c, subject: subject, logger: logger}
}

type natsTicket struct {
	id  string
	sub *nats.Subscription
}

func (t *natsTicket) JobID() string { return t.id }

func (q *NATS) Submit(ctx context.Context, job schema.Job) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	sub, err := q.bus.RequestJSON(q.subject, id, job)
	if err != nil {
		return nil, fmt.Errorf("publish job to %s: %w", q.subject, err)
	}
	q.logger.Debug("job submitted", "job_id", id, "subject", q.subject, "script", job.Script)
	return &natsTicket{id: id, sub: sub}, nil
}

func (q *NATS) Await(ctx context.Context, t Ticket) (*schema.Result, error) {
	nt, ok := t.(*natsTicket)
	if !ok {
		return nil, wrongTicket(t)
	}
	defer func() { _ = nt.sub.Unsubscribe() }()

	msg, err := nt.sub.NextMsgWithContext(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			q.logger.Warn("stopped waiting for job", "job_id", nt.id, "subject", q.subject, "err", ctxErr)
			return nil, ctxErr
		}
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("no workers listening on %s: %w", q.subject, err)
		}
		return nil, fmt.Errorf("await reply for job %s: %w", nt.id, err)
	}
	if len(msg.Data) == 0 && msg.Header.Get("Status") == "503" {
		return nil, fmt.Errorf("no workers listening on %s: %w", q.subject, nats.ErrNoResponders)
	}

	var res schema.Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return nil, &dropbox.ProtocolError{Source: q.subject, Err: err}
	}
	if err := res.Validate(); err != nil {
		return nil, &dropbox.ProtocolError{Source: q.subject, Err: err}
	}
	q.logger.Debug("job finished", "job_id", nt.id, "status", res.Job.Status, "rc", res.Job.RC)
	return &res, nil
}

// Close drains the connection if the queue opened it.
func (q *NATS) Close() error {
	if q.owned {
		q.bus.Close()
	}
	return nil
}
