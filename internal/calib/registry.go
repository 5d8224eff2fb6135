package calib

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry — реестр калибровочных профилей.
//
// Потокобезопасен.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
	}
}

// DefaultRegistry создаёт реестр со встроенными профилями.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Biorad200())
	return r
}

// Register регистрирует профиль.
// Профиль с таким же именем перезаписывается.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	return nil
}

// Get возвращает профиль по имени.
func (r *Registry) Get(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// List возвращает профили, отсортированные по имени.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// profileFile — формат YAML-файла профилей.
type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ParseProfiles разбирает YAML с профилями.
func ParseProfiles(data []byte) ([]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	for _, p := range f.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Profiles, nil
}

// LoadProfiles читает профили из файла и регистрирует их.
// Возвращает число загруженных профилей.
func (r *Registry) LoadProfiles(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read profiles: %w", err)
	}

	profiles, err := ParseProfiles(data)
	if err != nil {
		return 0, err
	}

	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}
