package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/workflow"
)

var (
	resumeReject  bool
	resumeQueries []string
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a paused run at its approval gate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "prospect")
		if err != nil {
			return err
		}
		defer env.Close()

		ev := workflow.Event{Approve: !resumeReject, Queries: resumeQueries}
		status, err := env.Manager.Resume(ctx, args[0], ev)
		if err != nil {
			return eris.Wrap(err, "resume run")
		}

		if status.State == model.RunAwaitingPersistApproval {
			fmt.Fprintf(os.Stderr, "Run %s paused for candidate review (%d candidates).\n", status.ID, len(status.Run.Candidates))
			fmt.Fprintf(os.Stderr, "Approve with: prospector resume %s --approve\n", status.ID)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the checkpointed state of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		status, err := env.Manager.Status(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "run status")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeReject, "reject", false, "reject the pending gate and fail the run")
	resumeCmd.Flags().StringSliceVar(&resumeQueries, "query", nil, "replace the pending search queries (query gate only)")
	// --approve is the default action; the flag exists so the intent is explicit.
	resumeCmd.Flags().Bool("approve", false, "approve the pending gate")
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
}
