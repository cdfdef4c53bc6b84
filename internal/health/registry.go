package health

import (
	"context"
	"sort"
	"sync"
)

// Checker reports whether a dependency is usable
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Registry holds the named dependencies behind the readiness probe
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds or replaces a checker
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Unregister removes a checker
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// List returns the registered names in order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every checker and returns the error of each by name
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error, len(r.checkers))
	for name, checker := range r.checkers {
		results[name] = checker.HealthCheck(ctx)
	}
	return results
}

// Healthy returns true when every result is nil
func Healthy(results map[string]error) bool {
	for _, err := range results {
		if err != nil {
			return false
		}
	}
	return true
}
