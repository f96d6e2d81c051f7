package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/catalog"
	"github.com/confecoes-lanca/prospector/internal/similarity"
	"github.com/confecoes-lanca/prospector/pkg/openai"
)

var embedForce bool

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage the reference client catalogue",
}

var clientsEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed the reference client catalogue into the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("embed"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		embedder := openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
		)
		index := similarity.NewIndex(st, embedder)

		status, count, err := index.EmbedAndStore(ctx, embedForce)
		if err != nil {
			return eris.Wrap(err, "embed catalogue")
		}

		zap.L().Info("catalogue embedding finished",
			zap.String("status", status),
			zap.Int("count", count),
		)
		fmt.Printf("%s: %d reference clients embedded\n", status, count)
		return nil
	},
}

var clientsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics for the reference catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := catalog.ComputeStats()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	clientsEmbedCmd.Flags().BoolVar(&embedForce, "force", false, "re-embed even when the store is already populated")
	clientsCmd.AddCommand(clientsEmbedCmd)
	clientsCmd.AddCommand(clientsStatsCmd)
	rootCmd.AddCommand(clientsCmd)
}
