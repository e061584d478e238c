package task

import (
	"fmt"
	"sort"
	"sync"

	"github.com/attune-io/attune/types"
)

// Constructor builds a task instance from its coerced parameters.
type Constructor func(params Params) (Task, error)

// Registry maps task ids to descriptors and constructors. It is built
// once at process startup, passed explicitly to every consumer, and
// read-only during pipeline execution.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

type registryEntry struct {
	desc  Descriptor
	build Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register binds a descriptor and constructor to the descriptor's id.
// Rebinding an id is ErrDuplicateRegistration.
func (r *Registry) Register(desc Descriptor, build Constructor) error {
	if desc.ID == "" {
		return types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("descriptor has no id"))
	}
	if build == nil {
		return types.NewError(types.ErrInvalidConfiguration, desc.ID, "",
			fmt.Errorf("task %q has no constructor", desc.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[desc.ID]; exists {
		return types.NewError(types.ErrDuplicateRegistration, desc.ID, "",
			fmt.Errorf("task %q already registered", desc.ID))
	}
	r.entries[desc.ID] = registryEntry{desc: desc, build: build}
	return nil
}

// Resolve coerces raw parameters against the task's schema and builds
// an instance. Unknown ids are ErrUnknownTask; parameter failures are
// ErrInvalidConfiguration.
func (r *Registry) Resolve(id string, raw map[string]any) (Task, Params, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, types.NewError(types.ErrUnknownTask, id, "",
			fmt.Errorf("no task registered as %q", id))
	}

	params, err := CoerceParams(id, entry.desc.Params, raw)
	if err != nil {
		return nil, nil, err
	}
	t, err := entry.build(params)
	if err != nil {
		return nil, nil, types.NewError(types.ErrInvalidConfiguration, id, "", err)
	}
	return t, params, nil
}

// Describe returns the descriptor registered under id.
func (r *Registry) Describe(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry.desc, ok
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.entries))
	for _, entry := range r.entries {
		descs = append(descs, entry.desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}
