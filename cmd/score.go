package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/store"
)

var (
	scoreFile   string
	scoreName   string
	scoreURL    string
	scoreCity   string
	scorePrice  float64
	scoreStores int
	scoreDesc   string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single candidate against the client catalogue",
	Long: `Score one candidate brand offline, without running a city search.

The candidate is given either as a JSON file (--file) matching the prospect
schema, or inline via flags.

Examples:
  # Score from a JSON file
  score --file candidate.json

  # Score inline
  score --name "Bond Tailors" --url https://bondtailors.com --city London \
        --price 850 --stores 2 --description "Independent bespoke tailor..."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		candidate, err := loadScoreCandidate()
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		breakdown, matches, err := env.Engine.Score(ctx, candidate)
		if err != nil {
			return eris.Wrap(err, "score candidate")
		}
		candidate.Breakdown = breakdown
		if len(matches) > 0 {
			candidate.MostSimilarClient = matches[0].Name
		}
		candidate.SimilarityExplanation = breakdown.Explanation.SimilarityText

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidate)
	},
}

func loadScoreCandidate() (*model.Prospect, error) {
	if scoreFile != "" {
		data, err := os.ReadFile(scoreFile)
		if err != nil {
			return nil, eris.Wrap(err, "read candidate file")
		}
		var p model.Prospect
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrap(err, "parse candidate file")
		}
		if p.WebsiteURL == "" {
			return nil, eris.New("candidate file is missing website_url")
		}
		if p.Domain == "" {
			p.Domain = store.ExtractDomain(p.WebsiteURL)
		}
		return &p, nil
	}

	if scoreURL == "" {
		return nil, eris.New("either --file or --url is required")
	}
	return &model.Prospect{
		Name:                scoreName,
		WebsiteURL:          scoreURL,
		Domain:              store.ExtractDomain(scoreURL),
		City:                store.NormalizeCity(scoreCity),
		AvgPriceEUR:         scorePrice,
		StoreCount:          scoreStores,
		DetailedDescription: scoreDesc,
		LocationQuality:     model.LocationUnknown,
		Status:              model.StatusNew,
	}, nil
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFile, "file", "", "JSON file with the candidate to score")
	f.StringVar(&scoreName, "name", "", "brand name")
	f.StringVar(&scoreURL, "url", "", "brand website URL")
	f.StringVar(&scoreCity, "city", "", "city of the brand")
	f.Float64Var(&scorePrice, "price", 0, "average suit price in EUR (0=unknown)")
	f.IntVar(&scoreStores, "stores", 0, "number of stores (0=unknown)")
	f.StringVar(&scoreDesc, "description", "", "brand description used for similarity matching")

	rootCmd.AddCommand(scoreCmd)
}
