// Package report writes quantified peaks to tab-separated files and to
// an SQLite results database.
package report

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/524D/mzquant/internal/quant"
)

var tsvHeader = strings.Join([]string{
	"File",
	"Base Sequence",
	"Modified Sequence",
	"Proteins",
	"Organisms",
	"Peptide Monoisotopic Mass",
	"Intensity",
	"Apex RT",
	"Start RT",
	"End RT",
	"Mass Error (ppm)",
	"Charge States",
	"Envelope Count",
	"Base Sequences Count",
	"Full Sequences Count",
	"Split RT",
	"Peak Type",
	"Intensity Score",
	"RT Score",
	"Ppm Score",
	"Scan Count Score",
	"MBR Score",
}, "\t")

// fmtFloat renders a float, leaving the field empty for NaN so that
// unknown values stay filterable downstream
func fmtFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func peakType(p *quant.ChromatographicPeak) string {
	switch {
	case p.RandomRT:
		return "MBR-decoy"
	case p.IsMbrPeak:
		return "MBR"
	default:
		return "MSMS"
	}
}

func proteinList(p *quant.ChromatographicPeak) string {
	var accs []string
	seen := make(map[string]bool)
	for _, id := range p.Identifications {
		for _, pg := range id.ProteinGroups {
			if !seen[pg.Accession] {
				seen[pg.Accession] = true
				accs = append(accs, pg.Accession)
			}
		}
	}
	return strings.Join(accs, ";")
}

func organismList(p *quant.ChromatographicPeak) string {
	var orgs []string
	seen := make(map[string]bool)
	for _, id := range p.Identifications {
		for _, pg := range id.ProteinGroups {
			if pg.Organism != "" && !seen[pg.Organism] {
				seen[pg.Organism] = true
				orgs = append(orgs, pg.Organism)
			}
		}
	}
	return strings.Join(orgs, ";")
}

// WriteTSV writes one row per chromatographic peak
func WriteTSV(filename string, peaks []*quant.ChromatographicPeak) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, tsvHeader); err != nil {
		return err
	}
	for _, p := range peaks {
		id := p.Identifications[0]
		_, err := fmt.Fprintf(f, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.File.Name,
			id.BaseSequence,
			id.ModifiedSequence,
			proteinList(p),
			organismList(p),
			fmtFloat(id.PeakfindingMass, 5),
			fmtFloat(p.Intensity, 2),
			fmtFloat(p.ApexRT(), 3),
			fmtFloat(p.StartRT(), 3),
			fmtFloat(p.EndRT(), 3),
			fmtFloat(p.MassError, 3),
			p.NumChargeStates,
			len(p.Envelopes),
			p.NumIdentsByBaseSeq,
			p.NumIdentsByFullSeq,
			fmtFloat(p.SplitRT, 3),
			peakType(p),
			fmtFloat(p.IntensityScore, 4),
			fmtFloat(p.RTScore, 4),
			fmtFloat(p.PpmScore, 4),
			fmtFloat(p.ScanCountScore, 4),
			fmtFloat(p.MbrScore, 2),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
