// internal/bus/nats.go
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// JobIDHeader carries the submitter's job identifier on request messages.
const JobIDHeader = "Hpc-Job-Id"

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("hpc-submit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// RequestJSON publishes v on subject with a private reply inbox and returns
// the subscription the single reply will arrive on. The subscription is
// registered and flushed before the request goes out, so a fast responder
// cannot be missed.
func (c *Client) RequestJSON(subject, id string, v any) (*nats.Subscription, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	inbox := c.nc.NewRespInbox()
	sub, err := c.nc.SubscribeSync(inbox)
	if err != nil {
		return nil, err
	}
	if err := sub.AutoUnsubscribe(1); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	if err := c.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	msg := nats.NewMsg(subject)
	msg.Reply = inbox
	msg.Data = b
	msg.Header.Set(JobIDHeader, id)
	if err := c.nc.PublishMsg(msg); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	return sub, nil
}

// ServeJSON answers requests on subject with the JSON encoding of whatever
// handler returns. Workers in a queue group share the load.
func (c *Client) ServeJSON(subject, queue string, handler func(ctx context.Context, msg *nats.Msg) any) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		reply := handler(ctx, msg)
		if msg.Reply == "" {
			return
		}
		b, err := json.Marshal(reply)
		if err != nil {
			return
		}
		_ = msg.Respond(b)
	})
}
