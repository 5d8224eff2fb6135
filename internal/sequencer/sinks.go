package sequencer

import (
	"context"

	"github.com/shaiso/beadprep/internal/domain"
)

// Journal — журнал run. Реализуется repo.PGStore и repo.SQLiteStore.
type Journal interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	UpdateRun(ctx context.Context, run *domain.Run) error
	RecordPhase(ctx context.Context, rec *domain.PhaseRecord) error
}

// EventSink — получатель событий run. Реализуется mq.Publisher.
//
// Вызывается и из горутины монитора (пауза/возобновление),
// поэтому должен быть потокобезопасным.
type EventSink interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}
