package source

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Loader)
)

// Register adds a loader factory under name, replacing any previous one.
// Built-in loaders register themselves in init functions.
func Register(name string, factory func(*slog.Logger) Loader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a loader factory by name.
func Get(name string) (func(*slog.Logger) Loader, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewLoader creates the loader for cfg.Type. The logger is handed to the
// loader (nil uses a discard logger).
func NewLoader(cfg Config, logger *slog.Logger) (Loader, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	typ := cfg.Type
	if typ == "" {
		typ = InferType(cfg)
	}
	if typ == "" {
		return nil, fmt.Errorf("source type not specified and cannot be inferred from path %q", cfg.Path)
	}

	factory, ok := Get(typ)
	if !ok {
		return nil, &UnknownTypeError{Type: typ, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered loader names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a loader is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownTypeError is returned when no loader is registered for a type.
type UnknownTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check source.type in sheetview.yaml", e.Type, e.Available)
}

// Is makes errors.Is(err, ErrUnknownType) match.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}
