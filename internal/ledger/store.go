package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dubline/internal/config"
)

// ErrRunNotFound is returned when a run ID has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// Open initializes or connects to the ledger database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
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

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, id, sourceURI string) (*Run, error) {
	timestamp := formatTime(time.Now())
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, source_uri, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, sourceURI, StatusRunning, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// SetRunDetails records facts discovered while preparing the run.
func (s *Store) SetRunDetails(ctx context.Context, id, voiceProfile string, referenceDuration float64) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET voice_profile = ?, reference_duration = ?, updated_at = ? WHERE id = ?`,
		nullableString(voiceProfile), referenceDuration, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update run details: %w", err)
	}
	return requireRow(res, id)
}

// FinishRun sets the terminal run status and optional error message.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, message string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(message), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, id)
}

// RecordLanguage upserts the outcome row for one language.
func (s *Store) RecordLanguage(ctx context.Context, rec LanguageRecord) error {
	if rec.Status == "" {
		rec.Status = StatusRunning
	}
	_, err := s.exec(ctx,
		`INSERT INTO language_results (
            run_id, name, code, status, stage, error_message, audio_uri, video_uri,
            chunks, speed_ratio, deviation, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, name) DO UPDATE SET
            code = excluded.code,
            status = excluded.status,
            stage = excluded.stage,
            error_message = excluded.error_message,
            audio_uri = excluded.audio_uri,
            video_uri = excluded.video_uri,
            chunks = excluded.chunks,
            speed_ratio = excluded.speed_ratio,
            deviation = excluded.deviation,
            updated_at = excluded.updated_at`,
		rec.RunID, rec.Name, rec.Code, rec.Status,
		nullableString(rec.Stage), nullableString(rec.ErrorMessage),
		nullableString(rec.AudioURI), nullableString(rec.VideoURI),
		rec.Chunks, rec.SpeedRatio, rec.Deviation, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record language %s: %w", rec.Name, err)
	}
	return nil
}

// GetRun fetches a run and its language rows.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_uri, status, voice_profile, reference_duration, error_message, created_at, updated_at
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	languages, err := s.languagesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Languages = languages
	return run, nil
}

// ListRuns returns the most recent runs first, without language rows.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_uri, status, voice_profile, reference_duration, error_message, created_at, updated_at
         FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) languagesFor(ctx context.Context, runID string) ([]LanguageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, code, status, stage, error_message, audio_uri, video_uri,
                chunks, speed_ratio, deviation, updated_at
         FROM language_results WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	var records []LanguageRecord
	for rows.Next() {
		var (
			rec                                LanguageRecord
			stage, message, audioURI, videoURI sql.NullString
			updated                            string
		)
		if err := rows.Scan(&rec.RunID, &rec.Name, &rec.Code, &rec.Status, &stage, &message,
			&audioURI, &videoURI, &rec.Chunks, &rec.SpeedRatio, &rec.Deviation, &updated); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		rec.Stage = stage.String
		rec.ErrorMessage = message.String
		rec.AudioURI = audioURI.String
		rec.VideoURI = videoURI.String
		rec.UpdatedAt = parseTime(updated)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run              Run
		voice, message   sql.NullString
		created, updated string
	)
	if err := row.Scan(&run.ID, &run.SourceURI, &run.Status, &voice, &run.ReferenceDuration,
		&message, &created, &updated); err != nil {
		return nil, err
	}
	run.VoiceProfile = voice.String
	run.ErrorMessage = message.String
	run.CreatedAt = parseTime(created)
	run.UpdatedAt = parseTime(updated)
	return &run, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
