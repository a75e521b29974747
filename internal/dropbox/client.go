// Package dropbox submits jobs to a batch worker pool through a shared
// directory. A job is a YAML file named <uuid>.job; the worker signals
// completion by writing <uuid>.job.finished next to it.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tendant/hpc-submit/pkg/schema"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultJobSuffix    = ".job"
	DefaultResultSuffix = ".finished"
)

// Client talks to a single dropbox directory. It holds only immutable
// configuration and may be shared between goroutines.
type Client struct {
	dir          string
	pollInterval time.Duration
	jobSuffix    string
	resultSuffix string
	logger       *slog.Logger

	remove func(name string) error
}

// Option customises a Client.
type Option func(*Client)

// WithPollInterval sets how often Wait looks for the result file.
// Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithSuffixes overrides the job and result file suffixes. Empty values keep
// the defaults.
func WithSuffixes(job, result string) Option {
	return func(c *Client) {
		if job != "" {
			c.jobSuffix = job
		}
		if result != "" {
			c.resultSuffix = result
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Ticket identifies a submitted job.
type Ticket struct {
	ID         string
	JobPath    string
	ResultPath string
}

// JobID returns the identifier embedded in the job file name.
func (t *Ticket) JobID() string { return t.ID }

// New returns a client for dir. dir must exist and be a directory.
func New(dir string, opts ...Option) (*Client, error) {
	c := &Client{
		dir:          dir,
		pollInterval: DefaultPollInterval,
		jobSuffix:    DefaultJobSuffix,
		resultSuffix: DefaultResultSuffix,
		logger:       slog.Default(),
		remove:       os.Remove,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := checkDir(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitAndWait deposits job in dir and blocks until the worker reports back.
func SubmitAndWait(ctx context.Context, dir string, job schema.Job, opts ...Option) (*schema.Result, error) {
	c, err := New(dir, opts...)
	if err != nil {
		return nil, err
	}
	return c.SubmitAndWait(ctx, job)
}

// SubmitAndWait submits job and waits for its result. There is no deadline
// other than the one carried by ctx.
func (c *Client) SubmitAndWait(ctx context.Context, job schema.Job) (*schema.Result, error) {
	t, err := c.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, t)
}

// Submit writes job into the dropbox. The file only becomes visible under its
// final .job name once its content has been flushed and closed.
func (c *Client) Submit(ctx context.Context, job schema.Job) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDir(c.dir); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	jobPath := filepath.Join(c.dir, id+c.jobSuffix)
	staging := filepath.Join(c.dir, "."+id+".tmp")

	if err := writeJob(staging, job); err != nil {
		_ = os.Remove(staging)
		return nil, err
	}
	if err := os.Rename(staging, jobPath); err != nil {
		_ = os.Remove(staging)
		return nil, fmt.Errorf("publish job file: %w", err)
	}
	syncDir(c.dir)

	t := &Ticket{ID: id, JobPath: jobPath, ResultPath: jobPath + c.resultSuffix}
	c.logger.Debug("job submitted", "job_id", id, "job_file", t.JobPath, "result_file", t.ResultPath, "script", job.Script)
	return t, nil
}

// Wait polls for the ticket's result file at the configured interval. The job
// file is left in place; removing it is up to the worker. When ctx ends first
// the job stays submitted and ctx.Err() is returned.
func (c *Client) Wait(ctx context.Context, t *Ticket) (*schema.Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		res, done, err := c.consume(t)
		if err != nil {
			return nil, err
		}
		if done {
			return res, nil
		}

		select {
		case <-ctx.Done():
			c.logger.Warn("stopped waiting for job", "job_id", t.ID, "job_file", t.JobPath, "err", ctx.Err())
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// consume reads, decodes and deletes the result file if it is there. An empty
// file is treated as not yet written.
func (c *Client) consume(t *Ticket) (*schema.Result, bool, error) {
	data, err := os.ReadFile(t.ResultPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read result file: %w", err)
	}
	if len(data) == 0 {
		c.logger.Debug("result file empty, waiting for worker", "job_id", t.ID, "result_file", t.ResultPath)
		return nil, false, nil
	}

	res, decodeErr := decodeResult(t.ResultPath, data)
	c.removeResult(t)
	if decodeErr != nil {
		return nil, false, decodeErr
	}

	c.logger.Debug("job finished", "job_id", t.ID, "status", res.Job.Status, "rc", res.Job.RC)
	return res, true, nil
}

// removeResult deletes the result file. A file that is already gone is fine.
func (c *Client) removeResult(t *Ticket) {
	err := c.remove(t.ResultPath)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	c.logger.Warn("remove result file", "job_id", t.ID, "result_file", t.ResultPath, "err", err)
}

func decodeResult(path string, data []byte) (*schema.Result, error) {
	var res schema.Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, &ProtocolError{Source: path, Err: err}
	}
	if err := res.Validate(); err != nil {
		return nil, &ProtocolError{Source: path, Err: err}
	}
	return &res, nil
}

func writeJob(path string, job schema.Job) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create job file: %w", err)
	}

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(job); err != nil {
		f.Close()
		return fmt.Errorf("encode job: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encode job: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync job file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close job file: %w", err)
	}
	return nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &ConfigurationError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &ConfigurationError{Path: dir, Err: errNotDirectory}
	}
	return nil
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
