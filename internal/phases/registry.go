package phases

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/beadprep/internal/domain"
)

// Registry — реестр фаз по имени.
//
// Позволяет подменить реализацию отдельной фазы (например, в тестах).
// Потокобезопасен.
type Registry struct {
	mu     sync.RWMutex
	phases map[domain.Phase]Phase
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		phases: make(map[domain.Phase]Phase),
	}
}

// DefaultRegistry создаёт реестр со всеми фазами протокола.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Sequence() {
		r.Register(p)
	}
	return r
}

// Register регистрирует фазу.
// Если фаза с таким именем уже существует, она будет перезаписана.
func (r *Registry) Register(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases[p.Name()] = p
}

// Get возвращает фазу по имени.
// Возвращает ErrPhaseNotFound, если фаза не найдена.
func (r *Registry) Get(name domain.Phase) (Phase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.phases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPhaseNotFound, name)
	}
	return p, nil
}

// Ordered возвращает фазы в порядке domain.Phases().
// Все фазы протокола должны быть зарегистрированы.
func (r *Registry) Ordered() ([]Phase, error) {
	order := domain.Phases()
	out := make([]Phase, 0, len(order))
	for _, name := range order {
		p, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Names возвращает имена зарегистрированных фаз.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.phases))
	for n := range r.phases {
		names = append(names, n.String())
	}
	sort.Strings(names)
	return names
}
