package report

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/524D/mzquant/internal/quant"
	_ "github.com/mattn/go-sqlite3"
)

// DBWriter writes quantification results to an SQLite database
type DBWriter struct {
	db       *sql.DB
	runStmt  *sql.Stmt
	peakStmt *sql.Stmt
}

// NewDBWriter opens (or creates) the results database and prepares the
// insert statements
func NewDBWriter(outputPath string) (*DBWriter, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &DBWriter{db: db}
	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *DBWriter) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Runs (
		RunId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL,
		Path TEXT
	);

	CREATE TABLE IF NOT EXISTS QuantifiedPeaks (
		PeakId INTEGER PRIMARY KEY,
		RunId INTEGER REFERENCES Runs(RunId),
		BaseSequence TEXT,
		ModifiedSequence TEXT,
		Proteins TEXT,
		Organisms TEXT,
		MonoisotopicMass DOUBLE,
		Intensity DOUBLE,
		ApexRetentionTime DOUBLE,
		StartRetentionTime DOUBLE,
		EndRetentionTime DOUBLE,
		MassErrorPpm DOUBLE,
		ChargeStates INTEGER,
		EnvelopeCount INTEGER,
		BaseSequencesCount INTEGER,
		FullSequencesCount INTEGER,
		SplitRetentionTime DOUBLE,
		PeakType TEXT,
		IntensityScore DOUBLE,
		RtScore DOUBLE,
		PpmScore DOUBLE,
		ScanCountScore DOUBLE,
		MbrScore DOUBLE
	);
	`
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (w *DBWriter) prepareStatements() error {
	var err error
	w.runStmt, err = w.db.Prepare(`INSERT INTO Runs (Name, Path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}
	w.peakStmt, err = w.db.Prepare(`INSERT INTO QuantifiedPeaks (
		RunId, BaseSequence, ModifiedSequence, Proteins, Organisms,
		MonoisotopicMass, Intensity, ApexRetentionTime, StartRetentionTime,
		EndRetentionTime, MassErrorPpm, ChargeStates, EnvelopeCount,
		BaseSequencesCount, FullSequencesCount, SplitRetentionTime, PeakType,
		IntensityScore, RtScore, PpmScore, ScanCountScore, MbrScore
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare peak insert: %w", err)
	}
	return nil
}

// nullFloat maps NaN to SQL NULL
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// WriteRun inserts a run record and returns its id
func (w *DBWriter) WriteRun(file *quant.SpectraFile) (int64, error) {
	res, err := w.runStmt.Exec(file.Name, file.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run %s: %w", file.Name, err)
	}
	return res.LastInsertId()
}

// WritePeaks inserts the peaks of one run inside a single transaction
func (w *DBWriter) WritePeaks(runID int64, peaks []*quant.ChromatographicPeak) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.Stmt(w.peakStmt)
	for _, p := range peaks {
		id := p.Identifications[0]
		_, err := stmt.Exec(
			runID,
			id.BaseSequence,
			id.ModifiedSequence,
			proteinList(p),
			organismList(p),
			id.PeakfindingMass,
			nullFloat(p.Intensity),
			nullFloat(p.ApexRT()),
			nullFloat(p.StartRT()),
			nullFloat(p.EndRT()),
			nullFloat(p.MassError),
			p.NumChargeStates,
			len(p.Envelopes),
			p.NumIdentsByBaseSeq,
			p.NumIdentsByFullSeq,
			nullFloat(p.SplitRT),
			peakType(p),
			nullFloat(p.IntensityScore),
			nullFloat(p.RTScore),
			nullFloat(p.PpmScore),
			nullFloat(p.ScanCountScore),
			nullFloat(p.MbrScore),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert peak: %w", err)
		}
	}
	return tx.Commit()
}

// Close releases the prepared statements and the database handle
func (w *DBWriter) Close() error {
	if w.runStmt != nil {
		w.runStmt.Close()
	}
	if w.peakStmt != nil {
		w.peakStmt.Close()
	}
	return w.db.Close()
}
