package robot

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrDriverNotFound — драйвер с таким именем не зарегистрирован.
var ErrDriverNotFound = errors.New("robot driver not found")

// DriverConfig — параметры создания драйвера.
type DriverConfig struct {
	// Realtime — выполнять задержки в реальном времени.
	// Реальный драйвер всегда работает в реальном времени;
	// симулятор по умолчанию только учитывает время.
	Realtime bool

	Logger *slog.Logger
}

// Factory создаёт контекст протокола.
type Factory func(cfg DriverConfig) (Protocol, error)

// Registry — реестр драйверов по имени.
//
// Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Factory),
	}
}

// Register регистрирует драйвер.
// Если драйвер с таким именем уже существует, он будет перезаписан.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[name] = f
}

// Open создаёт драйвер по имени.
func (r *Registry) Open(name string, cfg DriverConfig) (Protocol, error) {
	r.mu.RLock()
	f, ok := r.drivers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, name)
	}
	return f(cfg)
}

// Has проверяет, зарегистрирован ли драйвер.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.drivers[name]
	return ok
}

// Names возвращает имена зарегистрированных драйверов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Drivers — реестр драйверов процесса.
var Drivers = NewRegistry()
