package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/pipeline"
)

var (
	prospectCountry     string
	prospectForce       bool
	prospectAutoApprove bool
)

var prospectCmd = &cobra.Command{
	Use:   "prospect [city]",
	Short: "Search a city for prospect brands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "prospect")
		if err != nil {
			return err
		}
		defer env.Close()

		run := pipeline.NewRun(uuid.New().String(), args[0], prospectCountry)
		run.Force = prospectForce

		status, err := env.Manager.Start(ctx, run, prospectAutoApprove)
		if err != nil {
			return eris.Wrap(err, "start run")
		}

		if status.State == model.RunAwaitingQueryApproval {
			fmt.Fprintf(os.Stderr, "Run %s paused for query review.\n", status.ID)
			fmt.Fprintf(os.Stderr, "Approve with: prospector resume %s --approve\n", status.ID)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

func init() {
	prospectCmd.Flags().StringVar(&prospectCountry, "country", "", "country of the city (inferred when omitted)")
	prospectCmd.Flags().BoolVar(&prospectForce, "force", false, "re-search a city that already has cached prospects")
	prospectCmd.Flags().BoolVar(&prospectAutoApprove, "auto-approve", false, "skip reviewer approval gates and run to completion")
	rootCmd.AddCommand(prospectCmd)
}
