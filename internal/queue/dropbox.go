package queue

import (
	"context"

	"github.com/tendant/hpc-submit/internal/dropbox"
	"github.com/tendant/hpc-submit/pkg/schema"
)

// Dropbox is the filesystem-backed queue.
type Dropbox struct {
	client *dropbox.Client
}

func NewDropbox(c *dropbox.Client) *Dropbox {
	return &Dropbox{client: c}
}

func (q *Dropbox) Submit(ctx context.Context, job schema.Job) (Ticket, error) {
	t, err := q.client.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Dropbox) Await(ctx context.Context, t Ticket) (*schema.Result, error) {
	dt, ok := t.(*dropbox.Ticket)
	if !ok {
		return nil, wrongTicket(t)
	}
	return q.client.Wait(ctx, dt)
}

func (q *Dropbox) Close() error { return nil }
