// cmd/kaldi runs the Kaldi speech-to-text pipeline on HPC.
package main

import (
	"context"
	"os"

	"github.com/tendant/hpc-submit/internal/cli"
	"github.com/tendant/hpc-submit/pkg/schema"
)

func main() {
	os.Exit(cli.Run(context.Background(), command, os.Args[1:], os.Stderr))
}

var command = cli.Command{
	Name:        "kaldi",
	Description: "Submit a job to run Kaldi transcription on HPC",
	Args:        []string{"input", "kaldi_transcript_json", "kaldi_transcript_txt", "amp_transcript_json"},
	Job:         buildJob,
}

func buildJob(args []string) (schema.Job, error) {
	return schema.Job{
		Script:   "kaldi",
		InputMap: map[string]string{"input": args[0]},
		OutputMap: map[string]string{
			"kaldi_json": args[1],
			"kaldi_txt":  args[2],
			"amp_json":   args[3],
		},
	}, nil
}
