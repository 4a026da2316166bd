package tenant

import (
	"fmt"
	"sync"
)

// Resolver hands out tenant contexts by id. *Manager satisfies it.
type Resolver interface {
	GetContextByID(tenantID string) (*Context, error)
}

// Switcher tracks which tenant a single operation is working against. It
// is not shared between requests; each duplication run builds its own.
type Switcher struct {
	resolver Resolver
	origin   string

	mu    sync.Mutex
	stack []string
}

// NewSwitcher starts a switcher whose current tenant is origin.
func NewSwitcher(resolver Resolver, origin string) *Switcher {
	return &Switcher{resolver: resolver, origin: origin}
}

// Current reports the active tenant id.
func (s *Switcher) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return s.origin
	}
	return s.stack[len(s.stack)-1]
}

// Depth is the number of nested Run calls in progress.
func (s *Switcher) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// Run makes tenantID current, calls fn with its context and restores the
// previous tenant when fn returns or panics.
func (s *Switcher) Run(tenantID string, fn func(*Context) error) error {
	ctx, err := s.resolver.GetContextByID(tenantID)
	if err != nil {
		return fmt.Errorf("failed to switch to tenant %s: %w", tenantID, err)
	}

	s.push(tenantID)
	defer s.pop()

	return fn(ctx)
}

// Within is Run for work that produces a value.
func Within[T any](s *Switcher, tenantID string, fn func(*Context) (T, error)) (T, error) {
	var out T
	err := s.Run(tenantID, func(ctx *Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *Switcher) push(tenantID string) {
	s.mu.Lock()
	s.stack = append(s.stack, tenantID)
	s.mu.Unlock()
}

func (s *Switcher) pop() {
	s.mu.Lock()
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.mu.Unlock()
}

// StaticResolver serves a fixed set of contexts. Used by tooling and tests
// that build their stores directly.
type StaticResolver map[string]*Context

func (r StaticResolver) GetContextByID(tenantID string) (*Context, error) {
	ctx, ok := r[tenantID]
	if !ok {
		return nil, fmt.Errorf("unknown tenant: %s", tenantID)
	}
	return ctx, nil
}
