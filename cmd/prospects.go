package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/confecoes-lanca/prospector/internal/export"
	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/store"
)

var (
	listCity     string
	listCountry  string
	listStatus   string
	listMinScore float64
	listMaxScore float64
	listLimit    int

	exportOut  string
	exportCity string

	purgeYes       bool
	suppressReason string
)

var prospectsCmd = &cobra.Command{
	Use:   "prospects",
	Short: "Inspect and manage persisted prospects",
}

var prospectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prospects matching the given filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		prospects, err := st.ListProspects(ctx, store.ProspectFilter{
			City:     store.NormalizeCity(listCity),
			Country:  listCountry,
			Status:   model.ProspectStatus(listStatus),
			MinScore: listMinScore,
			MaxScore: listMaxScore,
			Limit:    listLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list prospects")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prospects)
	},
}

var prospectsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export prospects to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		prospects, err := st.ListProspects(ctx, store.ProspectFilter{
			City: store.NormalizeCity(exportCity),
		})
		if err != nil {
			return eris.Wrap(err, "list prospects")
		}

		if err := export.ExportProspectsXLSX(prospects, exportOut); err != nil {
			return eris.Wrap(err, "write workbook")
		}

		zap.L().Info("prospects exported",
			zap.Int("count", len(prospects)),
			zap.String("path", exportOut),
		)
		fmt.Printf("%d prospects written to %s\n", len(prospects), exportOut)
		return nil
	},
}

var prospectsStatusCmd = &cobra.Command{
	Use:   "set-status [id] [status]",
	Short: "Move a prospect through its outreach lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, next := args[0], model.ProspectStatus(args[1])

		if !model.ValidStatus(next) {
			return eris.Errorf("invalid status %q (new, contacted, converted, rejected)", args[1])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.GetProspect(ctx, id)
		if err != nil {
			return eris.Wrap(err, "get prospect")
		}
		if !model.CanTransition(p.Status, next) {
			return eris.Errorf("prospect %s cannot move from %s to %s", id, p.Status, next)
		}

		if err := st.UpdateProspectStatus(ctx, id, next); err != nil {
			return eris.Wrap(err, "update status")
		}
		fmt.Printf("%s: %s -> %s\n", id, p.Status, next)
		return nil
	},
}

var prospectsPurgeCmd = &cobra.Command{
	Use:   "purge [city]",
	Short: "Delete all prospects for a city so it can be re-searched",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		city := store.NormalizeCity(args[0])

		if !purgeYes {
			return eris.Errorf("refusing to delete prospects for %q without --yes", city)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.DeleteCityProspects(ctx, city)
		if err != nil {
			return eris.Wrap(err, "delete city prospects")
		}
		fmt.Printf("%d prospects deleted for %s\n", deleted, city)
		return nil
	},
}

// suppressionEntry is one row of a YAML suppression file.
type suppressionEntry struct {
	Domain string `yaml:"domain"`
	Reason string `yaml:"reason"`
}

func parseSuppressionFile(data []byte) ([]suppressionEntry, error) {
	var entries []suppressionEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "parse suppression file")
	}
	out := entries[:0]
	for _, e := range entries {
		if d := store.ExtractDomain(e.Domain); d != "" {
			e.Domain = d
			out = append(out, e)
		}
	}
	return out, nil
}

var prospectsSuppressImportCmd = &cobra.Command{
	Use:   "suppress-import [file]",
	Short: "Import a YAML list of suppressed domains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read suppression file")
		}
		entries, err := parseSuppressionFile(data)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, e := range entries {
			if err := st.SuppressDomain(ctx, e.Domain, e.Reason); err != nil {
				return eris.Wrapf(err, "suppress %s", e.Domain)
			}
		}
		fmt.Printf("%d domains suppressed\n", len(entries))
		return nil
	},
}

var prospectsSuppressCmd = &cobra.Command{
	Use:   "suppress [domain]",
	Short: "Exclude a domain from future discovery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		domain := store.ExtractDomain(args[0])

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SuppressDomain(ctx, domain, suppressReason); err != nil {
			return eris.Wrap(err, "suppress domain")
		}
		fmt.Printf("%s suppressed\n", domain)
		return nil
	},
}

func init() {
	prospectsListCmd.Flags().StringVar(&listCity, "city", "", "filter by city")
	prospectsListCmd.Flags().StringVar(&listCountry, "country", "", "filter by country")
	prospectsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	prospectsListCmd.Flags().Float64Var(&listMinScore, "min-score", 0, "minimum final score")
	prospectsListCmd.Flags().Float64Var(&listMaxScore, "max-score", 0, "maximum final score")
	prospectsListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of results")

	prospectsExportCmd.Flags().StringVar(&exportOut, "out", "prospects.xlsx", "output file path")
	prospectsExportCmd.Flags().StringVar(&exportCity, "city", "", "export a single city only")

	prospectsPurgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm deletion")
	prospectsSuppressCmd.Flags().StringVar(&suppressReason, "reason", "", "why the domain is excluded")

	prospectsCmd.AddCommand(prospectsListCmd)
	prospectsCmd.AddCommand(prospectsExportCmd)
	prospectsCmd.AddCommand(prospectsStatusCmd)
	prospectsCmd.AddCommand(prospectsPurgeCmd)
	prospectsCmd.AddCommand(prospectsSuppressCmd)
	prospectsCmd.AddCommand(prospectsSuppressImportCmd)
	rootCmd.AddCommand(prospectsCmd)
}
