// Package cli runs a submit command: parse flags, build the job, hand it to
// the configured queue and turn the worker's verdict into an exit code.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tendant/hpc-submit/internal/config"
	"github.com/tendant/hpc-submit/internal/dropbox"
	"github.com/tendant/hpc-submit/internal/logging"
	"github.com/tendant/hpc-submit/internal/process"
	"github.com/tendant/hpc-submit/internal/queue"
	"github.com/tendant/hpc-submit/pkg/schema"
)

const (
	ExitOK    = 0
	ExitFail  = 1
	ExitUsage = 2
)

// Command describes one submit tool.
type Command struct {
	Name        string
	Description string
	// Args names the positional arguments that follow the dropbox.
	Args []string
	// Flags registers command specific flags before parsing.
	Flags func(fs *flag.FlagSet)
	// Job builds the job description from the positional arguments in Args.
	Job func(args []string) (schema.Job, error)
}

// parseInterspersed parses flags anywhere in args, not only before the
// first positional argument. Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(pos, rest...), nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// Run executes cmd with args (without the program name) and returns the
// process exit code. Logs go to stderr.
func Run(ctx context.Context, cmd Command, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "Turn on debugging")
	quiet := fs.Bool("quiet", false, "Turn off output")
	if cmd.Flags != nil {
		cmd.Flags(fs)
	}
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\n\nusage: %s [flags] dropbox %s\n", cmd.Description, cmd.Name, strings.Join(cmd.Args, " "))
		fs.PrintDefaults()
	}
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	_ = godotenv.Load()

	logger := logging.New(stderr, logging.Level(*debug, *quiet), os.Getenv("LOG_FORMAT"))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		return ExitFail
	}

	switch {
	case len(pos) == len(cmd.Args)+1:
		cfg.Dropbox, pos = pos[0], pos[1:]
	case len(pos) == len(cmd.Args) && cfg.Backend != config.BackendDropbox:
	case len(pos) == len(cmd.Args) && cfg.Dropbox != "":
	default:
		fs.Usage()
		return ExitUsage
	}

	job, err := cmd.Job(pos)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd.Name, err)
		fs.Usage()
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	q, err := queue.Open(cfg, logger)
	if err != nil {
		if errors.Is(err, dropbox.ErrConfiguration) {
			logger.Error("Dropbox doesn't exist or isn't a directory", "dropbox", cfg.Dropbox, "err", err)
			return ExitFail
		}
		logger.Error("open queue", "backend", cfg.Backend, "err", err)
		return ExitFail
	}
	defer q.Close()

	res, err := submitAndWait(ctx, q, job, logger)
	if err != nil {
		logger.Error("job did not complete", "script", job.Script, "err", err)
		return ExitFail
	}

	logger.Info("job finished", "status", res.Job.Status, "message", res.Job.Message)
	logger.Debug("job stderr", "stderr", res.Job.Stderr)
	logger.Debug("job stdout", "stdout", res.Job.Stdout)
	logger.Debug("job return code", "rc", res.Job.RC)

	return res.ExitCode()
}

func submitAndWait(ctx context.Context, q queue.Queue, job schema.Job, logger *slog.Logger) (*schema.Result, error) {
	tracked := process.NewJob(job)

	ticket, err := q.Submit(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if err := process.MarkSubmitted(tracked, ticket.JobID()); err != nil {
		return nil, err
	}
	jobLogger := logger.With("job_id", tracked.ID, "script", tracked.Script)
	jobLogger.Debug("waiting for job", "state", tracked.State)

	res, err := q.Await(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("await: %w", err)
	}
	if err := process.MarkComplete(tracked, res.Job.Status); err != nil {
		return nil, err
	}
	jobLogger.Debug("job complete", "state", tracked.State, "succeeded", tracked.Succeeded())
	return res, nil
}

// SlotsFlag collects repeated slot=path flags into a map.
type SlotsFlag map[string]string

func (s SlotsFlag) String() string {
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (s SlotsFlag) Set(value string) error {
	slot, path, ok := strings.Cut(value, "=")
	if !ok || slot == "" || path == "" {
		return fmt.Errorf("want slot=path, got %q", value)
	}
	if _, dup := s[slot]; dup {
		return fmt.Errorf("slot %q given more than once", slot)
	}
	s[slot] = path
	return nil
}
