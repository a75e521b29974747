// pkg/schema/job.go
package schema

import "errors"

// Job is the job description deposited for a worker. Fields are kept in
// sorted key order to match job files written by other submitters.
type Job struct {
	InputMap  map[string]string `json:"input_map" yaml:"input_map"`
	OutputMap map[string]string `json:"output_map" yaml:"output_map"`
	Script    string            `json:"script" yaml:"script"`
}

type Status string

const StatusOK Status = "ok"

// Outcome is what the worker reports about a finished job.
type Outcome struct {
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
	RC      int    `json:"rc" yaml:"rc"`
	Stdout  string `json:"stdout" yaml:"stdout"`
	Stderr  string `json:"stderr" yaml:"stderr"`
}

// Result is the document found in a result file.
type Result struct {
	Job *Outcome `json:"job" yaml:"job"`
}

// OK reports whether the worker finished the job with status "ok". The
// numeric return code is diagnostic only and does not affect the outcome.
func (r *Result) OK() bool {
	return r != nil && r.Job != nil && r.Job.Status == StatusOK
}

// ExitCode maps the result onto a process exit code.
func (r *Result) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

var (
	ErrMissingJob    = errors.New("missing job section")
	ErrMissingStatus = errors.New("missing job.status")
)

// Validate checks the fields every consumer of a result relies on.
func (r *Result) Validate() error {
	if r == nil || r.Job == nil {
		return ErrMissingJob
	}
	if r.Job.Status == "" {
		return ErrMissingStatus
	}
	return nil
}
