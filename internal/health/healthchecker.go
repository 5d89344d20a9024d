// Package health aggregates component health probes into a single
// service-level flag consumed by the health endpoint and startup gating.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Checker is implemented by component-level health monitors.
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// Service folds the component checkers into one cached flag. The service is
// healthy only when every dependency is.
type Service struct {
	healthy atomic.Int32
	deps    []Checker
	log     zerolog.Logger
}

func NewService(log zerolog.Logger, deps ...Checker) *Service {
	s := &Service{deps: deps, log: log}
	s.healthy.Store(0)
	return s
}

// IsHealthy returns the cached service health (non-blocking).
func (s *Service) IsHealthy() bool { return s.healthy.Load() == 1 }

// Start re-evaluates dependency health on the given interval until ctx is
// done, logging transitions.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(0)
	eval := func() {
		up := int32(1)
		for _, c := range s.deps {
			if !c.IsHealthy() {
				up = 0
				break
			}
		}
		s.healthy.Store(up)
		if up != prev {
			if up == 1 {
				s.log.Info().Msg("service health: UP")
			} else {
				s.log.Error().Msg("service health: DOWN")
			}
			prev = up
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
