package process

import (
	"testing"

	"github.com/tendant/hpc-submit/pkg/schema"
)

func TestNewJobCapturesInput(t *testing.T) {
	input := schema.Job{Script: "kaldi", InputMap: map[string]string{"input": "a.wav"}}
	job := NewJob(input)

	if job.Script != "kaldi" || job.State != JobStateNotSubmitted {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Input.InputMap["input"] != "a.wav" {
		t.Fatalf("job input not preserved: %#v", job.Input)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	job := NewJob(schema.Job{Script: "inaspeech"})

	if err := MarkComplete(job, schema.StatusOK); err == nil {
		t.Fatal("expected error completing an unsubmitted job")
	}
	if err := MarkSubmitted(job, "job-1"); err != nil {
		t.Fatalf("MarkSubmitted returned error: %v", err)
	}
	if job.ID != "job-1" || job.State != JobStatePending {
		t.Fatalf("unexpected job after submit: %+v", job)
	}
	if err := MarkSubmitted(job, "job-2"); err == nil {
		t.Fatal("expected error submitting twice")
	}
	if err := MarkComplete(job, "failed"); err != nil {
		t.Fatalf("MarkComplete returned error: %v", err)
	}
	if job.Succeeded() {
		t.Fatal("failed job reported as succeeded")
	}
	if err := MarkComplete(job, schema.StatusOK); err == nil {
		t.Fatal("expected error completing twice")
	}
}

func TestSucceededRequiresOKStatus(t *testing.T) {
	job := NewJob(schema.Job{Script: "inaspeech"})
	_ = MarkSubmitted(job, "job-3")
	if job.Succeeded() {
		t.Fatal("pending job reported as succeeded")
	}
	_ = MarkComplete(job, schema.StatusOK)
	if !job.Succeeded() {
		t.Fatal("ok job not reported as succeeded")
	}
}
