package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const checkTimeout = 3 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Service encapsulates liveness and readiness checks.
type Service struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Check)}
}

// Add registers a readiness check under name.
func (s *Service) Add(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Status returns the liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Ready runs every check and reports per-check results ("ok" or the error).
func (s *Service) Ready(ctx context.Context) (bool, map[string]string) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ready := true
	out := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			ready = false
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return ready, out
}
