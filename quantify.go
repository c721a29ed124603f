// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"regexp"
	"strconv"

	"github.com/524D/mzquant/internal/index"
	"github.com/524D/mzquant/internal/mass"
	"github.com/524D/mzquant/internal/mzident"
	"github.com/524D/mzquant/internal/mzml"
	"github.com/524D/mzquant/internal/quant"
)

type scoreRange struct {
	minScore float64 // Minimum score to accept
	maxScore float64 // Maximum score to accept
	priority int     // Priority of the score, lowest is best
}

type scoreFilter map[string]scoreRange

func parseScoreFilter(scoreFilterStr string) (scoreFilter, error) {
	scoreFilt := make(scoreFilter)

	re := regexp.MustCompile(`([^\(]+)\(([^\)]*)\)`)
	matchedStringsList := re.FindAllStringSubmatch(scoreFilterStr, -1)
	for n, matchedStrings := range matchedStringsList {
		scoreName := matchedStrings[1]
		scoreRangeStr := matchedStrings[2]
		_, ok := scoreFilt[scoreName]
		if ok {
			return nil, errors.New(scoreName + ` defined more than once.`)
		}
		minScore, maxScore, err := parseFloat64Range(scoreRangeStr,
			-math.MaxFloat64, math.MaxFloat64)
		if err != nil {
			return nil, errors.New(`Invalid range for score ` + scoreName)
		}
		scRange := scoreRange{minScore: minScore, maxScore: maxScore, priority: n}
		scoreFilt[scoreName] = scRange
	}

	return scoreFilt, nil
}

// passesScoreFilter checks the identification's search engine scores
// against the filter. When multiple filtered scores are present, the
// one with the best (lowest) priority decides.
func passesScoreFilter(ident mzident.Identification, scoreFilt scoreFilter) bool {
	scoreOK := false
	curPrio := math.MaxInt32
	for _, cv := range ident.Cv {
		// Check if the CV accession number or CV name matches scorefilter
		filt, ok := scoreFilt[cv.Accession]
		if !ok {
			filt, ok = scoreFilt[cv.Name]
		}
		if ok && filt.priority < curPrio {
			score, err := strconv.ParseFloat(cv.Value, 64)
			if err != nil {
				continue
			}
			curPrio = filt.priority
			scoreOK = score >= filt.minScore && score <= filt.maxScore
		}
	}
	return scoreOK
}

// makeIdentifications converts the mzIdentML content into the shared
// identification records used by quantification. Identifications
// without a valid retention time or failing the score filter are
// skipped.
func makeIdentifications(mzIdentML *mzident.MzIdentML, file *quant.SpectraFile,
	scoreFilt scoreFilter) ([]*quant.Identification, error) {

	ids := make([]*quant.Identification, 0, mzIdentML.NumIdents())
	for i := 0; i < mzIdentML.NumIdents(); i++ {
		ident, err := mzIdentML.Ident(i)
		if err != nil {
			return nil, err
		}
		if ident.RetentionTime < 0 {
			return nil, errors.New("no valid retention time for identification " + ident.PepID)
		}
		if !passesScoreFilter(ident, scoreFilt) {
			continue
		}
		m, err := mass.Peptide(ident.PepSeq)
		if err != nil {
			continue // Skip if mass cannot be computed
		}
		var proteinGroups []quant.ProteinGroup
		for _, prot := range ident.Proteins {
			proteinGroups = append(proteinGroups, quant.ProteinGroup{
				Accession: prot.Accession,
				Organism:  prot.Organism,
			})
		}
		ids = append(ids, &quant.Identification{
			BaseSequence:     ident.PepSeq,
			ModifiedSequence: ident.ModifiedSequence,
			PeakfindingMass:  m + ident.ModMass,
			MS2RetentionTime: ident.RetentionTime,
			Charge:           ident.Charge,
			ProteinGroups:    proteinGroups,
			File:             file,
		})
	}
	if len(ids) == 0 {
		log.Print("No identifications passed the score filter for " + file.Name +
			". Is the specified scorefilter applicable for this file?")
	}
	return ids, nil
}

// runQuant holds the per-run quantification output plus the peak index
// needed when the run later acts as MBR acceptor
type runQuant struct {
	result *quant.RunResult
	index  *index.Index
}

// quantifyRun reads one run's spectra and identifications, traces a
// chromatographic peak per identification and reconciles duplicates
func quantifyRun(file *quant.SpectraFile, scoreFilt scoreFilter, traceParams quant.TraceParams) (*runQuant, error) {
	f1, err := os.Open(file.MzidPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.MzidPath, err)
	}
	defer f1.Close()
	mzIdentML, err := mzident.Read(f1)
	if err != nil {
		return nil, fmt.Errorf("mzident.Read %s: %w", file.MzidPath, err)
	}
	ids, err := makeIdentifications(&mzIdentML, file, scoreFilt)
	if err != nil {
		return nil, err
	}

	f2, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f2.Close()
	mzML, err := mzml.Read(f2)
	if err != nil {
		return nil, fmt.Errorf("mzml.Read %s: %w", file.Path, err)
	}
	idx, err := index.Build(&mzML)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", file.Path, err)
	}

	tracer := quant.NewTracer(idx, traceParams)
	peaks := make([]*quant.ChromatographicPeak, 0, len(ids))
	for _, id := range ids {
		p, err := tracer.TraceDirect(id, file)
		if err != nil {
			return nil, err
		}
		peaks = append(peaks, p)
	}
	peaks = quant.MergeDuplicatePeaks(peaks, traceParams.Integrate)

	return &runQuant{
		result: quant.NewRunResult(file, ids, peaks),
		index:  idx,
	}, nil
}
