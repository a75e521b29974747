// cmd/hpc-submit submits an arbitrary script to the HPC batch queue.
//
// Usage:
//
//	hpc-submit -script inaspeech -input input=a.wav -output segments=out.json /srv/dropbox
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/tendant/hpc-submit/internal/cli"
	"github.com/tendant/hpc-submit/pkg/schema"
)

func main() {
	os.Exit(cli.Run(context.Background(), command(), os.Args[1:], os.Stderr))
}

func command() cli.Command {
	var script string
	inputs := cli.SlotsFlag{}
	outputs := cli.SlotsFlag{}

	return cli.Command{
		Name:        "hpc-submit",
		Description: "Submit a job to run a script on HPC",
		Flags: func(fs *flag.FlagSet) {
			fs.StringVar(&script, "script", "", "Script to run on the cluster (required)")
			fs.Var(inputs, "input", "Input slot as slot=path (repeatable)")
			fs.Var(outputs, "output", "Output slot as slot=path (repeatable)")
		},
		Job: func(args []string) (schema.Job, error) {
			if script == "" {
				return schema.Job{}, errors.New("-script is required")
			}
			return schema.Job{
				Script:    script,
				InputMap:  map[string]string(inputs),
				OutputMap: map[string]string(outputs),
			}, nil
		},
	}
}
