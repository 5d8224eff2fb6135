package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/beadprep/internal/domain"
)

// defaultListLimit — размер страницы ListRuns по умолчанию.
const defaultListLimit = 50

// Store — журнал runs и фаз.
//
// RecordPhase выполняет upsert по (run_id, phase): фаза записывается
// при старте и перезаписывается при завершении.
type Store interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	UpdateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error)
	RecordPhase(ctx context.Context, rec *domain.PhaseRecord) error
	ListPhases(ctx context.Context, runID uuid.UUID) ([]domain.PhaseRecord, error)
	Close() error
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Status domain.RunStatus
	Limit  int
	Offset int
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func (f RunFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Config — выбор хранилища журнала.
type Config struct {
	// DatabaseURL — DSN PostgreSQL. Если задан, используется PGStore.
	DatabaseURL string

	// SQLitePath — файл SQLite, используется без DatabaseURL.
	SQLitePath string

	Logger *slog.Logger
}

// Open открывает журнал: PostgreSQL, если задан DatabaseURL, иначе SQLite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DatabaseURL != "" {
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := NewPGStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("journal opened", "backend", "postgres")
		return store, nil
	}

	store, err := OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Info("journal opened", "backend", "sqlite", "path", cfg.SQLitePath)
	return store, nil
}

// --- Helpers ---

func marshalParams(p domain.Params) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return b, nil
}

func unmarshalParams(b []byte, p *domain.Params) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	return nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
