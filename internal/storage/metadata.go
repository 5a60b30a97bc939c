package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrAnalysisNotFound is returned when no run matches the job ID
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisRecord describes one analysis run. Intervals are not stored.
type AnalysisRecord struct {
	JobID          string    `json:"job_id"`
	FileName       string    `json:"file_name"`
	SourceType     string    `json:"source_type"`
	Status         string    `json:"status"`
	ErrorClass     string    `json:"error_class,omitempty"`
	Duration       float64   `json:"duration_seconds"`
	Windows        int       `json:"windows"`
	SkippedWindows int       `json:"skipped_windows"`
	Intervals      int       `json:"intervals"`
	CreatedAt      time.Time `json:"created_at"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table if not exists
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		status TEXT NOT NULL,
		error_class TEXT,
		duration REAL,
		windows INTEGER,
		skipped_windows INTEGER,
		intervals INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveAnalysis records a finished run
func (mdb *MetadataDB) SaveAnalysis(rec AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO analyses (job_id, file_name, source_type, status, error_class, duration, windows, skipped_windows, intervals, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, rec.JobID, rec.FileName, rec.SourceType, rec.Status, rec.ErrorClass,
		rec.Duration, rec.Windows, rec.SkippedWindows, rec.Intervals, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save analysis metadata: %w", err)
	}

	return nil
}

const selectAnalysis = `
	SELECT job_id, file_name, source_type, status, COALESCE(error_class, ''), duration, windows, skipped_windows, intervals, created_at
	FROM analyses`

// GetAnalysis retrieves a run by job ID
func (mdb *MetadataDB) GetAnalysis(jobID string) (*AnalysisRecord, error) {
	row := mdb.db.QueryRow(selectAnalysis+` WHERE job_id = ?`, jobID)

	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return rec, nil
}

// ListAnalyses returns the most recent runs first
func (mdb *MetadataDB) ListAnalyses(limit int) ([]AnalysisRecord, error) {
	rows, err := mdb.db.Query(selectAnalysis+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*AnalysisRecord, error) {
	var (
		rec       AnalysisRecord
		createdAt int64
	)
	err := row.Scan(&rec.JobID, &rec.FileName, &rec.SourceType, &rec.Status, &rec.ErrorClass,
		&rec.Duration, &rec.Windows, &rec.SkippedWindows, &rec.Intervals, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return &rec, nil
}
