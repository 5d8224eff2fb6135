package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shaiso/beadprep/internal/domain"
)

// MemoryPath — путь in-memory базы SQLite (для тестов и plan).
const MemoryPath = ":memory:"

// SQLiteStore — локальный журнал в SQLite на хосте робота.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultSQLitePath возвращает ~/.beadprep/journal.db.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".beadprep", "journal.db"), nil
}

// OpenSQLite открывает (и при необходимости создаёт) журнал SQLite.
// Пустой path означает DefaultSQLitePath().
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		p, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает одного писателя; для :memory: каждое соединение —
	// отдельная база.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close закрывает базу.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun создаёт запись run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	params, err := marshalParams(run.Params)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (id, params, status, phase, driver, profile, pauses,
		                  started_at, finished_at, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(),
		string(params),
		string(run.Status),
		nullString(string(run.Phase)),
		run.Driver,
		run.Profile,
		run.Pauses,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
		run.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.ID)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun обновляет статус, фазу, счётчик пауз и время run.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = ?, phase = ?, pauses = ?, started_at = ?, finished_at = ?, error = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		string(run.Status),
		nullString(string(run.Phase)),
		run.Pauses,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
		run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sqliteRunColumns = `id, params, status, phase, driver, profile, pauses,
	started_at, finished_at, error, created_at`

// GetRun возвращает run по ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE id = ?`

	run, err := scanSQLiteRun(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns возвращает runs, новые первыми.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT ` + sqliteRunColumns + `
		FROM runs
		WHERE (? IS NULL OR status = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	status := nullString(string(filter.Status))
	rows, err := s.db.QueryContext(ctx, query, status, status, filter.limit(), filter.offset())
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RecordPhase записывает или обновляет запись фазы.
func (s *SQLiteStore) RecordPhase(ctx context.Context, rec *domain.PhaseRecord) error {
	query := `
		INSERT INTO run_phases (run_id, phase, ordinal, status, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, phase) DO UPDATE
		SET status = excluded.status,
		    started_at = excluded.started_at,
		    finished_at = excluded.finished_at,
		    error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.RunID.String(),
		string(rec.Phase),
		rec.Ordinal,
		string(rec.Status),
		rec.StartedAt,
		rec.FinishedAt,
		nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("record phase: %w", err)
	}
	return nil
}

// ListPhases возвращает фазы run по порядку.
func (s *SQLiteStore) ListPhases(ctx context.Context, runID uuid.UUID) ([]domain.PhaseRecord, error) {
	query := `
		SELECT run_id, phase, ordinal, status, started_at, finished_at, error
		FROM run_phases
		WHERE run_id = ?
		ORDER BY ordinal
	`
	rows, err := s.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	var out []domain.PhaseRecord
	for rows.Next() {
		var rec domain.PhaseRecord
		var id, phase, status string
		var finished sql.NullTime
		var phaseErr sql.NullString

		if err := rows.Scan(&id, &phase, &rec.Ordinal, &status, &rec.StartedAt, &finished, &phaseErr); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		if rec.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		rec.Phase = domain.Phase(phase)
		rec.Status = domain.PhaseStatus(status)
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		rec.Error = phaseErr.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteRun сканирует строку в Run.
func scanSQLiteRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var id, params, status string
	var phase, runError sql.NullString
	var started, finished sql.NullTime

	err := row.Scan(
		&id,
		&params,
		&status,
		&phase,
		&run.Driver,
		&run.Profile,
		&run.Pauses,
		&started,
		&finished,
		&runError,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if err := unmarshalParams([]byte(params), &run.Params); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.Phase = domain.Phase(phase.String)
	run.Error = runError.String
	if started.Valid {
		t := started.Time
		run.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
