package process

import (
	"fmt"

	"github.com/tendant/hpc-submit/pkg/schema"
)

// JobState represents where a submission is in its lifecycle.
type JobState string

const (
	JobStateNotSubmitted JobState = "not_submitted"
	JobStatePending      JobState = "submitted_pending"
	JobStateComplete     JobState = "submitted_complete"
)

// Job tracks a single submission from the requester's side. There is no
// cancelled state: once submitted, a job can only complete.
type Job struct {
	ID     string
	Script string
	Input  schema.Job
	State  JobState
	Status schema.Status
}

func NewJob(input schema.Job) *Job {
	return &Job{
		Script: input.Script,
		Input:  input,
		State:  JobStateNotSubmitted,
	}
}

// MarkSubmitted records the identifier the queue assigned to the job.
func MarkSubmitted(j *Job, id string) error {
	if j.State != JobStateNotSubmitted {
		return fmt.Errorf("invalid transition: %s -> %s", j.State, JobStatePending)
	}
	j.ID = id
	j.State = JobStatePending
	return nil
}

// MarkComplete records the terminal status reported by the worker.
func MarkComplete(j *Job, status schema.Status) error {
	if j.State != JobStatePending {
		return fmt.Errorf("invalid transition: %s -> %s", j.State, JobStateComplete)
	}
	j.State = JobStateComplete
	j.Status = status
	return nil
}

// Succeeded reports whether the job completed with status ok.
func (j *Job) Succeeded() bool {
	return j.State == JobStateComplete && j.Status == schema.StatusOK
}
