// file: internal/download/factory.go
// version: 2.0.0
// guid: be6a33cc-3062-42b7-b395-1892d8829540

package download

import (
	"fmt"

	"github.com/jdfalk/media-acquirer/internal/config"
)

// NewBackend builds the backend for cfg.Kind. sessions may be shared by
// several backends; keys never collide across endpoints.
func NewBackend(cfg config.BackendConfig, sessions SessionCache, opts ...Option) (Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if sessions == nil {
		sessions = NewSessionCache(0)
	}

	switch Kind(cfg.Kind) {
	case KindDeluge:
		return NewDelugeClient(cfg, sessions, opts...), nil
	case KindTransmission:
		return NewTransmissionClient(cfg, sessions, opts...), nil
	case KindSABnzbd:
		return NewSABnzbdClient(cfg, sessions, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, cfg.Kind)
	}
}

// Registry holds one backend per configured name.
type Registry struct {
	backends map[string]Backend
	names    []string
}

// NewRegistry builds every configured backend over one session cache.
func NewRegistry(cfgs []config.BackendConfig, sessions SessionCache, opts ...Option) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend, len(cfgs))}
	for _, cfg := range cfgs {
		cfg.ApplyDefaults()
		b, err := NewBackend(cfg, sessions, opts...)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", cfg.Name, err)
		}
		r.Add(cfg.Name, b)
	}
	return r, nil
}

// Add registers or replaces a backend.
func (r *Registry) Add(name string, b Backend) {
	if r.backends == nil {
		r.backends = make(map[string]Backend)
	}
	if _, exists := r.backends[name]; !exists {
		r.names = append(r.names, name)
	}
	r.backends[name] = b
}

// Get returns the named backend.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Names returns backend names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
