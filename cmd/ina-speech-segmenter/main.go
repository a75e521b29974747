// cmd/ina-speech-segmenter runs the INA speech segmenter on HPC.
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
	Name:        "ina-speech-segmenter",
	Description: "Submit a job to run ina speech segmenter on HPC",
	Args:        []string{"input", "segments"},
	Job:         buildJob,
}

func buildJob(args []string) (schema.Job, error) {
	return schema.Job{
		Script:    "inaspeech",
		InputMap:  map[string]string{"input": args[0]},
		OutputMap: map[string]string{"segments": args[1]},
	}, nil
}
