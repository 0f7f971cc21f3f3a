package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit bounds FindRecent when the caller passes no limit.
const DefaultHistoryLimit = 20

// createdAtLayout pads fractional seconds to a fixed nine digits so the
// stored text sorts lexicographically in timestamp order. RFC3339Nano drops
// trailing zeros, which breaks ORDER BY for sub-second-apart records.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound signals a patch against a missing consultation id.
var ErrNotFound = errors.New("consultation not found")

// Record is one persisted evaluation attempt and its outcome. ReportPath is
// the only field mutated after creation, and only once.
type Record struct {
	ID            string
	UserID        string
	TargetWord    string
	Transcription string
	Score         float64
	Feedback      string
	Errors        []string
	Suggestions   []string
	Highlights    map[string]any
	AudioFilename string
	Provider      string
	ReportPath    string
	CreatedAt     time.Time
}

// Store is the SQLite-backed consultation recorder.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the consultation store, creating the data directory and
// schema as needed.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS consultations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    target_word TEXT,
    transcription TEXT,
    score REAL,
    feedback TEXT,
    errors TEXT NOT NULL DEFAULT '[]',
    suggestions TEXT NOT NULL DEFAULT '[]',
    highlights TEXT NOT NULL DEFAULT '{}',
    audio_filename TEXT,
    provider TEXT,
    report_path TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consultations_user_created ON consultations(user_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create persists a new record, assigning its id and creation time.
// Multiple records per user, target word, or filename are expected.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.clock().UTC()

	errsJSON, suggJSON, hlJSON, err := encodeDetails(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode consultation details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO consultations(id, user_id, target_word, transcription, score, feedback,
		    errors, suggestions, highlights, audio_filename, provider, report_path, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.TargetWord, rec.Transcription, rec.Score, rec.Feedback,
		errsJSON, suggJSON, hlJSON, rec.AudioFilename, rec.Provider, rec.ReportPath,
		rec.CreatedAt.Format(createdAtLayout))
	if err != nil {
		return Record{}, fmt.Errorf("insert consultation: %w", err)
	}
	return rec, nil
}

// FindRecent returns up to limit records for one user, newest first.
func (s *Store) FindRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, target_word, transcription, score, feedback,
		    errors, suggestions, highlights, audio_filename, provider, report_path, created_at
		 FROM consultations WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PatchReportPath sets the report path on an existing record and returns the
// updated row. A missing id surfaces as ErrNotFound, never as a raised error
// of another kind.
func (s *Store) PatchReportPath(ctx context.Context, id, path string) (Record, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE consultations SET report_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return Record{}, fmt.Errorf("patch report path: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Record{}, err
	}
	if affected == 0 {
		return Record{}, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, target_word, transcription, score, feedback,
		    errors, suggestions, highlights, audio_filename, provider, report_path, created_at
		 FROM consultations WHERE id = ?`, id)
	return scanRecord(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var errsJSON, suggJSON, hlJSON, created string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TargetWord, &rec.Transcription, &rec.Score,
		&rec.Feedback, &errsJSON, &suggJSON, &hlJSON, &rec.AudioFilename, &rec.Provider,
		&rec.ReportPath, &created)
	if err != nil {
		return Record{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = ts
	}
	if err := json.Unmarshal([]byte(errsJSON), &rec.Errors); err != nil {
		rec.Errors = []string{}
	}
	if err := json.Unmarshal([]byte(suggJSON), &rec.Suggestions); err != nil {
		rec.Suggestions = []string{}
	}
	if err := json.Unmarshal([]byte(hlJSON), &rec.Highlights); err != nil {
		rec.Highlights = map[string]any{}
	}
	return rec, nil
}

func encodeDetails(rec Record) (string, string, string, error) {
	if rec.Errors == nil {
		rec.Errors = []string{}
	}
	if rec.Suggestions == nil {
		rec.Suggestions = []string{}
	}
	if rec.Highlights == nil {
		rec.Highlights = map[string]any{}
	}
	errsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return "", "", "", err
	}
	suggJSON, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return "", "", "", err
	}
	hlJSON, err := json.Marshal(rec.Highlights)
	if err != nil {
		return "", "", "", err
	}
	return string(errsJSON), string(suggJSON), string(hlJSON), nil
}
