package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/shaiso/beadprep/internal/robot"
)

// magModule — симулируемый магнитный модуль.
type magModule struct {
	robot *Robot
	name  string
	slot  int

	mu      sync.Mutex
	engaged bool
	labware *robot.Labware
}

// LoadLabware устанавливает посуду на модуль.
func (m *magModule) LoadLabware(ctx context.Context, loadName string) (robot.Labware, error) {
	var lw robot.Labware
	cmd := Command{Kind: KindLoadLabware, Message: fmt.Sprintf("%s on %s", loadName, m.name)}
	err := m.robot.exec(ctx, &cmd, 0, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.labware != nil {
			return fmt.Errorf("%w: %s already holds %s", ErrSlotOccupied, m.name, m.labware.LoadName)
		}
		lw = m.robot.addLabware(loadName, m.slot)
		m.labware = &lw
		return nil
	})
	return lw, err
}

// Engage поднимает магниты.
func (m *magModule) Engage(ctx context.Context) error {
	cmd := Command{Kind: KindEngage, Message: m.name}
	return m.robot.exec(ctx, &cmd, magnetTime, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.engaged = true
		return nil
	})
}

// Disengage опускает магниты.
func (m *magModule) Disengage(ctx context.Context) error {
	cmd := Command{Kind: KindDisengage, Message: m.name}
	return m.robot.exec(ctx, &cmd, magnetTime, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.engaged = false
		return nil
	})
}

// Engaged сообщает, подняты ли магниты.
func (m *magModule) Engaged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engaged
}
