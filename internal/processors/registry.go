package processors

import (
	"context"
	"sort"
	"sync"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// Registry is a thread-safe blockType → Processor table.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]Processor),
	}
}

// Register adds a processor under its Name. Returns error on duplicate name.
func (r *Registry) Register(p Processor) error {
	if p == nil {
		return schema.NewError(schema.ErrCodeValidation, "processor is nil")
	}
	name := p.Name()
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "processor name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processors[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "processor %q already registered", name)
	}
	r.processors[name] = p
	return nil
}

// Alias makes alias resolve to the processor registered as target.
func (r *Registry) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inner, ok := r.processors[target]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "alias target %q not registered", target)
	}
	if _, exists := r.processors[alias]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "processor %q already registered", alias)
	}
	r.processors[alias] = &aliasProcessor{inner: inner, name: alias}
	return nil
}

// Get retrieves a processor by blockType.
func (r *Registry) Get(blockType string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[blockType]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownStepType, "unknown step type: %s", blockType)
	}
	return p, nil
}

// Has checks if a blockType is registered.
func (r *Registry) Has(blockType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.processors[blockType]
	return ok
}

// List returns info for all registered processors, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.processors))
	for name, p := range r.processors {
		info := Info{Name: name, Description: p.Description()}
		if a, ok := p.(*aliasProcessor); ok {
			info.AliasOf = a.inner.Name()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Count returns the number of registered names, aliases included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processors)
}

// aliasProcessor exposes a processor under a second blockType.
type aliasProcessor struct {
	inner Processor
	name  string
}

func (a *aliasProcessor) Name() string        { return a.name }
func (a *aliasProcessor) Description() string { return a.inner.Description() }

func (a *aliasProcessor) Process(ctx context.Context, in Input) (map[string]any, error) {
	return a.inner.Process(ctx, in)
}
