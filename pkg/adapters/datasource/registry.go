package datasource

import (
	"sync"
)

// Registry maps kinds to their driver bindings.
type Registry struct {
	mu            sync.RWMutex
	registrations map[Kind]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{registrations: make(map[Kind]Registration)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that adapters register into.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	defaultRegistry.Register(reg)
}

// Register adds or replaces the bindings for reg.Info.Kind.
func (r *Registry) Register(reg Registration) {
	if reg.Blocking == nil {
		panic("datasource: registration for " + string(reg.Info.Kind) + " has no blocking binding")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[reg.Info.Kind] = reg
}

// Lookup returns the registration for a kind.
func (r *Registry) Lookup(kind Kind) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[kind]
	return reg, ok
}

// IsRegistered checks if a kind has a compiled-in binding.
func (r *Registry) IsRegistered(kind Kind) bool {
	_, ok := r.Lookup(kind)
	return ok
}

// Infos returns discovery info for every supported kind, in display order,
// with availability filled in from the registrations.
func (r *Registry) Infos() []KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		reg, ok := r.registrations[k]
		info := reg.Info
		if !ok {
			info = KindInfo{Kind: k, DisplayName: string(k)}
		}
		info.Kind = k
		info.Category = k.Category()
		info.Available = ok
		info.NonBlocking = ok && reg.NonBlocking != nil
		if ok {
			info.RequiredFields = reg.Blocking.RequiredFields()
		}
		result = append(result, info)
	}
	return result
}

// IsRegistered checks if a kind is available in the default registry.
func IsRegistered(kind Kind) bool {
	return defaultRegistry.IsRegistered(kind)
}

// RegisteredKinds returns discovery info from the default registry.
func RegisteredKinds() []KindInfo {
	return defaultRegistry.Infos()
}
