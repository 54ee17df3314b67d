package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with a different version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Attempt is one recorded verification attempt.
type Attempt struct {
	ID                   string
	PatientID            string
	MedicineID           string
	ReferenceImageURL    string
	TestImageURL         string
	SimilarityScore      float64
	TextSimilarityScore  *float64
	FinalSimilarityScore float64
	Match                bool
	Approved             bool
	AttemptDate          string
	CreatedAt            time.Time
}

// DateKey formats a timestamp as the calendar-day key used for quota
// counting.
func DateKey(at time.Time) string {
	return at.Format("2006-01-02")
}

// Store manages attempt persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the attempt database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database to reset)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// CountAttempts reports how many attempts the patient has logged for the
// medicine on the given calendar day.
func (s *Store) CountAttempts(ctx context.Context, patientID, medicineID, dateKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM verification_attempts
		 WHERE patient_id = ? AND medicine_id = ? AND attempt_date = ?`,
		patientID, medicineID, dateKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// RecordAttempt inserts one attempt row. A missing ID is generated; a
// missing CreatedAt defaults to now.
func (s *Store) RecordAttempt(ctx context.Context, attempt *Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	if attempt.AttemptDate == "" {
		attempt.AttemptDate = DateKey(attempt.CreatedAt)
	}

	var textScore any
	if attempt.TextSimilarityScore != nil {
		textScore = *attempt.TextSimilarityScore
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_attempts (
			id, patient_id, medicine_id, reference_image_url, test_image_url,
			similarity_score, text_similarity_score, final_similarity_score,
			match, approved, attempt_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.PatientID, attempt.MedicineID,
		attempt.ReferenceImageURL, attempt.TestImageURL,
		attempt.SimilarityScore, textScore, attempt.FinalSimilarityScore,
		boolToInt(attempt.Match), boolToInt(attempt.Approved),
		attempt.AttemptDate, attempt.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts first, optionally filtered by
// patient. A non-positive limit defaults to 20.
func (s *Store) ListRecent(ctx context.Context, patientID string, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, patient_id, medicine_id, reference_image_url, test_image_url,
		similarity_score, text_similarity_score, final_similarity_score,
		match, approved, attempt_date, created_at
		FROM verification_attempts`
	args := []any{}
	if patientID != "" {
		query += " WHERE patient_id = ?"
		args = append(args, patientID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func scanAttempt(rows *sql.Rows) (*Attempt, error) {
	var (
		attempt   Attempt
		textScore sql.NullFloat64
		matched   int
		approved  int
		createdAt string
	)
	err := rows.Scan(
		&attempt.ID, &attempt.PatientID, &attempt.MedicineID,
		&attempt.ReferenceImageURL, &attempt.TestImageURL,
		&attempt.SimilarityScore, &textScore, &attempt.FinalSimilarityScore,
		&matched, &approved, &attempt.AttemptDate, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	if textScore.Valid {
		value := textScore.Float64
		attempt.TextSimilarityScore = &value
	}
	attempt.Match = matched != 0
	attempt.Approved = approved != 0
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		attempt.CreatedAt = parsed
	}
	return &attempt, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
