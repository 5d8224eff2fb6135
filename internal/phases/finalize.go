package phases

import (
	"context"
	"fmt"

	"github.com/shaiso/beadprep/internal/domain"
)

// Finalization паркует большую пипетку и опускает магниты.
type Finalization struct{}

// NewFinalization создаёт фазу финализации.
func NewFinalization() *Finalization {
	return &Finalization{}
}

// Name возвращает имя фазы.
func (f *Finalization) Name() domain.Phase {
	return domain.PhaseFinalization
}

// Execute завершает протокол и вызывает env.OnDone после последней
// команды драйверу.
func (f *Finalization) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	if err := deck.Large.Home(ctx); err != nil {
		return fmt.Errorf("home %s: %w", deck.Large.Name(), err)
	}
	if err := deck.Mag.Disengage(ctx); err != nil {
		return fmt.Errorf("disengage: %w", err)
	}

	// Последняя аппаратная команда: после OnDone монитор двери остановлен
	// и снять паузу некому.
	if err := env.Robot.Comment(ctx, "Protocol Complete"); err != nil {
		return err
	}

	if env.OnDone != nil {
		env.OnDone()
	}
	env.phaseLogger(f.Name()).Info("protocol complete")
	return nil
}
