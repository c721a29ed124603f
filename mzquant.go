// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/524D/mzquant/internal/quant"
	"github.com/524D/mzquant/internal/report"
)

// Program name and version, shown in help and version output
const progName = "mzQuant"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	mzidFilename *string  // Filename of the mzIdentML file (single-run only)
	tsvFilename  *string  // Filename of the TSV peak report
	dbFilename   *string  // Filename of the SQLite results database
	ppmTol       *float64 // m/z tolerance for isotope peak lookup
	rtWindow     *float64 // RT half-window for direct peak tracing, seconds
	missedScans  *int     // consecutive envelope-free scans before a trace ends
	isotopes     *int     // isotopes to look for per envelope
	minIsotopes  *int     // isotopes required for an envelope
	integrate    *bool    // report summed intensity instead of apex intensity
	mbr          *bool    // transfer identifications between runs
	scoreFilter  *string  // PSM score filter to apply
	charge       *string  // Charge range for peak tracing
	minCharge    int
	maxCharge    int
	threads      *int     // Parallel workers; 0 = all CPUs
	verbosity    int      // Verbosity of progress messages (infoDefault...)
	args         []string // mzML files passed on the command line
	debug        bool     // Enable debug info (environment variable MZQUANT_DEBUG=1)
	mzidSuffixes []string
}

func (par *params) traceParams() quant.TraceParams {
	return quant.TraceParams{
		PPMTolerance:   *par.ppmTol,
		MinCharge:      par.minCharge,
		MaxCharge:      par.maxCharge,
		RTWindow:       *par.rtWindow,
		MaxMissedScans: *par.missedScans,
		MinIsotopes:    *par.minIsotopes,
		MaxIsotopes:    *par.isotopes,
		Integrate:      *par.integrate,
	}
}

// quantifyAll runs per-file quantification on a bounded worker pool.
// Each run is quantified by exactly one worker; results are only read
// after all workers are done.
func quantifyAll(files []*quant.SpectraFile, scoreFilt scoreFilter, par params) ([]*runQuant, error) {
	threads := *par.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > len(files) {
		threads = len(files)
	}

	runs := make([]*runQuant, len(files))
	errs := make([]error, len(files))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				runs[i], errs[i] = quantifyRun(files[i], scoreFilt, par.traceParams())
			}
		}()
	}
	for i := range files {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i].Name, err)
		}
	}
	return runs, nil
}

// transferAll runs MBR for every (donor, acceptor) pair of runs and
// returns the transferred peaks per acceptor. A failing pair (e.g. too
// few shared identifications) is logged and skipped; it must not abort
// the sibling pairs.
func transferAll(runs []*runQuant, par params) [][]*quant.ChromatographicPeak {
	engine := &quant.MbrEngine{
		Trace:   par.traceParams(),
		Threads: *par.threads,
	}

	transferred := make([][]*quant.ChromatographicPeak, len(runs))
	for a, acceptor := range runs {
		for d, donor := range runs {
			if d == a {
				continue
			}
			groups, _, err := engine.Transfer(donor.result, acceptor.result, acceptor.index)
			if err != nil {
				log.Printf("MBR %s -> %s skipped: %v",
					donor.result.File.Name, acceptor.result.File.Name, err)
				continue
			}
			debugLogDonorGroups(donor.result.File.Name, acceptor.result.File.Name, groups, par)
			for _, g := range groups {
				transferred[a] = append(transferred[a], g.All()...)
			}
		}
	}
	return transferred
}

func writeReports(runs []*runQuant, transferred [][]*quant.ChromatographicPeak, par params) error {
	var allPeaks []*quant.ChromatographicPeak
	for i, run := range runs {
		allPeaks = append(allPeaks, run.result.Peaks...)
		if transferred != nil {
			allPeaks = append(allPeaks, transferred[i]...)
		}
	}
	if err := report.WriteTSV(*par.tsvFilename, allPeaks); err != nil {
		return fmt.Errorf("writing %s: %w", *par.tsvFilename, err)
	}
	if *par.dbFilename == `` {
		return nil
	}
	w, err := report.NewDBWriter(*par.dbFilename)
	if err != nil {
		return err
	}
	defer w.Close()
	for i, run := range runs {
		runID, err := w.WriteRun(run.result.File)
		if err != nil {
			return err
		}
		peaks := run.result.Peaks
		if transferred != nil {
			peaks = append(append([]*quant.ChromatographicPeak(nil), peaks...), transferred[i]...)
		}
		if err := w.WritePeaks(runID, peaks); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanitizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) == 0 {
		fmt.Fprintf(os.Stderr, `Arguments must be names of mzML files.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	if *par.mzidFilename != `` && len(par.args) > 1 {
		fmt.Fprintf(os.Stderr, `Option -mzid is only valid for a single mzML file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	for _, mzMLName := range par.args {
		extension := filepath.Ext(mzMLName)
		startName := mzMLName[0 : len(mzMLName)-len(extension)]
		par.mzidSuffixes = append(par.mzidSuffixes, startName+".mzid")
	}
	if *par.mzidFilename != `` {
		par.mzidSuffixes[0] = *par.mzidFilename
	}
	if *par.tsvFilename == `` {
		*par.tsvFilename = "quantified-peaks.tsv"
	}

	var err error
	par.minCharge, par.maxCharge, err = parseIntRange(*par.charge, 1, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid charge range.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.minIsotopes < 1 {
		*par.minIsotopes = 1
	}
	if *par.isotopes < *par.minIsotopes {
		*par.isotopes = *par.minIsotopes
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile> [<mzMLfile> ...]

  This program quantifies identified peptides over one or more mzML
  files, using peptide identifications in accompanying mzID files
  (same base name, extension .mzid). With option -mbr, identifications
  are transferred between runs and each transfer receives a 0-100
  confidence score calibrated against decoy transfers.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    When environment variable MZQUANT_DEBUG=1, match-between-runs
    transfers are logged with their score components.

USAGE EXAMPLES:
  %s run1.mzML run2.mzML
    Quantify both runs using identifications in run1.mzid and run2.mzid,
    write the peak report to quantified-peaks.tsv.

  %s -mbr -db results.sqlite run1.mzML run2.mzML run3.mzML
    Idem for three runs, with match-between-runs transfer, and the
    results additionally written to an SQLite database.
`, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.mzidFilename = flag.String("mzid",
		"",
		"mzIdentMl `filename`. Only valid for a single mzML file; by default the name is derived from the mzML filename.")
	par.tsvFilename = flag.String("o",
		"",
		"`filename` of the TSV peak report (default quantified-peaks.tsv)")
	par.dbFilename = flag.String("db",
		"",
		"`filename` of an SQLite results database. If empty, no database is written.")
	par.ppmTol = flag.Float64("ppm",
		10.0,
		`m/z tolerance (ppm) for isotope peak lookup`)
	par.rtWindow = flag.Float64("rtwin",
		60.0,
		`retention time half-window (seconds) for peak tracing around
the identification`)
	par.missedScans = flag.Int("missed",
		2,
		`number of consecutive scans without isotopic envelope before a
peak trace ends`)
	par.isotopes = flag.Int("isotopes",
		4,
		`number of isotope peaks to look for per envelope`)
	par.minIsotopes = flag.Int("minisotopes",
		2,
		`minimum number of isotope peaks an envelope must have`)
	par.integrate = flag.Bool("integrate", false,
		`report the summed intensity over the elution profile instead of
the apex intensity`)
	par.mbr = flag.Bool("mbr", false,
		`transfer identifications between runs (match-between-runs).
Requires at least 2 input files.`)
	par.scoreFilter = flag.String("scorefilter",
		"MS:1002257(0.0:1e-2)MS:1001330(0.0:1e-2)MS:1001159(0.0:1e-2)MS:1002466(0.99:)",
		`filter for PSM scores to accept. Format:
<CVterm1|scorename1>([<minscore1>]:[<maxscore1>])...
When multiple score names/CV terms are specified, the first one on the list
that matches a score in the input file will be used.
The default contains reasonable values for some common search engines
and post-search scoring software:
  MS:1002257 (Comet:expectation value)
  MS:1001330 (X!Tandem:expectation value)
  MS:1001159 (SEQUEST:expectation value)
  MS:1002466 (PeptideShaker PSM score)
 `)
	par.charge = flag.String("charge",
		"1:5",
		"charge `range` considered for peak tracing")
	par.threads = flag.Int("threads",
		0,
		`number of parallel workers. 0 (default) uses all CPUs.`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()
	// Check if debug output should be enabled
	par.debug = os.Getenv("MZQUANT_DEBUG") == `1`

	sanitizeParams(&par)

	scoreFilt, err := parseScoreFilter(*par.scoreFilter)
	if err != nil {
		log.Fatalf("Invalid parameter 'scorefilter': %v", err)
	}

	files := make([]*quant.SpectraFile, len(par.args))
	for i, mzMLName := range par.args {
		base := filepath.Base(mzMLName)
		files[i] = &quant.SpectraFile{
			Path:     mzMLName,
			MzidPath: par.mzidSuffixes[i],
			Name:     base[0 : len(base)-len(filepath.Ext(base))],
		}
	}

	t := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Quantifying %d runs: ", len(files))
	}
	runs, err := quantifyAll(files, scoreFilt, par)
	if err != nil {
		log.Fatalf("quantify: %v", err)
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	var transferred [][]*quant.ChromatographicPeak
	if *par.mbr {
		if len(runs) < 2 {
			log.Print("MBR requires at least 2 input files, skipping transfer")
		} else {
			t = time.Now()
			if par.verbosity == infoVerbose {
				fmt.Fprintf(os.Stderr, "Matching between runs: ")
			}
			transferred = transferAll(runs, par)
			if par.verbosity == infoVerbose {
				fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
			}
		}
	}

	if err := writeReports(runs, transferred, par); err != nil {
		log.Fatalf("report: %v", err)
	}

	if par.verbosity != infoSilent {
		total := 0
		for i, run := range runs {
			total += len(run.result.Peaks)
			if transferred != nil {
				total += len(transferred[i])
			}
		}
		fmt.Fprintf(os.Stderr, "Runs: %d Reported peaks: %d\n", len(runs), total)
	}
}
