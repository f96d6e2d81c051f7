// Package export renders prospect lists as spreadsheet files for the
// commercial team.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/scoring"
)

// prospectColumns is the ordered header row of the export sheet.
var prospectColumns = []string{
	"Nome",
	"Website",
	"Cidade",
	"País",
	"Lojas",
	"Preço Médio (EUR)",
	"Lã",
	"À Medida",
	"Localização",
	"Pontuação Final",
	"Preço",
	"Dimensão",
	"Lã (pts)",
	"À Medida (pts)",
	"Similaridade",
	"Mercado",
	"Cliente Mais Próximo",
	"Recomendação",
	"Estado",
	"Descoberto Em",
}

// WriteProspectsXLSX renders the prospects as a single-sheet workbook.
func WriteProspectsXLSX(prospects []model.Prospect, w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Prospects")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range prospectColumns {
		header.AddCell().SetString(col)
	}

	for i := range prospects {
		addProspectRow(sheet, &prospects[i])
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// ExportProspectsXLSX writes the workbook to a file path.
func ExportProspectsXLSX(prospects []model.Prospect, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()
	return WriteProspectsXLSX(prospects, f)
}

func addProspectRow(sheet *xlsx.Sheet, p *model.Prospect) {
	row := sheet.AddRow()
	row.AddCell().SetString(p.Name)
	row.AddCell().SetString(p.WebsiteURL)
	row.AddCell().SetString(p.City)
	row.AddCell().SetString(p.Country)
	row.AddCell().SetInt(p.EffectiveStoreCount())
	row.AddCell().SetString(formatPrice(p.AvgPriceEUR))
	row.AddCell().SetString(orDash(p.WoolPercentage))
	row.AddCell().SetString(formatMTM(p.MadeToMeasure))
	row.AddCell().SetString(string(p.LocationQuality))

	if p.Breakdown != nil {
		b := p.Breakdown
		row.AddCell().SetFloatWithFormat(b.FinalScore, "0.00")
		row.AddCell().SetInt(b.PriceScore)
		row.AddCell().SetInt(b.SizeScore)
		row.AddCell().SetInt(b.WoolScore)
		row.AddCell().SetInt(b.MTMScore)
		row.AddCell().SetFloatWithFormat(b.SimilarityScore, "0.00")
		row.AddCell().SetFloatWithFormat(b.MarketScore, "0.00")
		row.AddCell().SetString(orDash(p.MostSimilarClient))
		row.AddCell().SetString(scoring.Recommendation(b.FinalScore))
	} else {
		for i := 0; i < 9; i++ {
			row.AddCell().SetString("-")
		}
	}

	row.AddCell().SetString(string(p.Status))
	if p.DiscoveredAt.IsZero() {
		row.AddCell().SetString("-")
	} else {
		row.AddCell().SetString(p.DiscoveredAt.UTC().Format(time.RFC3339))
	}
}

func formatPrice(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("€%.0f", v)
}

func formatMTM(v *bool) string {
	switch {
	case v == nil:
		return "desconhecido"
	case *v:
		return "sim"
	default:
		return "não"
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
