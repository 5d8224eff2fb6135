package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/beadprep/internal/domain"
)

// pgUniqueViolation — SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// PGStore — журнал в PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore создаёт PGStore поверх пула.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate создаёт таблицы журнала, если их нет.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close закрывает пул.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateRun создаёт запись run.
func (s *PGStore) CreateRun(ctx context.Context, run *domain.Run) error {
	params, err := marshalParams(run.Params)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (id, params, status, phase, driver, profile, pauses,
		                  started_at, finished_at, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.pool.Exec(ctx, query,
		run.ID,
		params,
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
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.ID)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun обновляет статус, фазу, счётчик пауз и время run.
func (s *PGStore) UpdateRun(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, phase = $3, pauses = $4, started_at = $5, finished_at = $6, error = $7
		WHERE id = $1
	`
	result, err := s.pool.Exec(ctx, query,
		run.ID,
		string(run.Status),
		nullString(string(run.Phase)),
		run.Pauses,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const pgRunColumns = `id, params, status, phase, driver, profile, pauses,
	started_at, finished_at, error, created_at`

// GetRun возвращает run по ID.
func (s *PGStore) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE id = $1`

	run, err := scanPGRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns возвращает runs, новые первыми.
func (s *PGStore) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT ` + pgRunColumns + `
		FROM runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.limit(),
		filter.offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RecordPhase записывает или обновляет запись фазы.
func (s *PGStore) RecordPhase(ctx context.Context, rec *domain.PhaseRecord) error {
	query := `
		INSERT INTO run_phases (run_id, phase, ordinal, status, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, phase) DO UPDATE
		SET status = EXCLUDED.status,
		    started_at = EXCLUDED.started_at,
		    finished_at = EXCLUDED.finished_at,
		    error = EXCLUDED.error
	`
	_, err := s.pool.Exec(ctx, query,
		rec.RunID,
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
func (s *PGStore) ListPhases(ctx context.Context, runID uuid.UUID) ([]domain.PhaseRecord, error) {
	query := `
		SELECT run_id, phase, ordinal, status, started_at, finished_at, error
		FROM run_phases
		WHERE run_id = $1
		ORDER BY ordinal
	`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	var out []domain.PhaseRecord
	for rows.Next() {
		var rec domain.PhaseRecord
		var phase, status string
		var phaseErr *string

		if err := rows.Scan(&rec.RunID, &phase, &rec.Ordinal, &status, &rec.StartedAt, &rec.FinishedAt, &phaseErr); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		rec.Phase = domain.Phase(phase)
		rec.Status = domain.PhaseStatus(status)
		if phaseErr != nil {
			rec.Error = *phaseErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanPGRun сканирует строку (pgx.Row или pgx.Rows) в Run.
func scanPGRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var params []byte
	var status string
	var phase, runError *string

	err := row.Scan(
		&run.ID,
		&params,
		&status,
		&phase,
		&run.Driver,
		&run.Profile,
		&run.Pauses,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := unmarshalParams(params, &run.Params); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	if phase != nil {
		run.Phase = domain.Phase(*phase)
	}
	if runError != nil {
		run.Error = *runError
	}
	return &run, nil
}
