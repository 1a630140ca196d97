package furrow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Health reports the cached worker health. It does not probe the workers.
func (s *Supervisor) Health(ctx context.Context) HealthReport {
	workers := s.registry.List()
	report := HealthReport{
		RegistrySize:  len(workers),
		Conversations: s.store.Len(),
		OracleEnabled: s.oracle != nil,
		Workers:       make([]WorkerHealth, 0, len(workers)),
	}
	for _, w := range workers {
		if w.Healthy {
			report.HealthyCount++
		}
		report.Workers = append(report.Workers, WorkerHealth{
			Name:    w.Name,
			Summary: w.Summary,
			Healthy: w.Healthy,
		})
	}
	report.Ready = report.HealthyCount > 0
	return report
}

// RefreshHealth probes every worker concurrently, updates the registry and
// returns the new report.
func (s *Supervisor) RefreshHealth(ctx context.Context) HealthReport {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range s.adapters {
		g.Go(func() error {
			healthy := a.HealthCheck(gctx)
			if err := s.registry.SetHealthy(a.Name(), healthy); err != nil {
				return err
			}
			if !healthy {
				s.logger.Warn("worker unhealthy", "worker", a.Name())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("health refresh failed", "err", err)
	}
	return s.Health(ctx)
}

// EvictStale drops conversations idle for longer than the inactivity timeout.
func (s *Supervisor) EvictStale(ctx context.Context) int {
	return s.store.EvictStale(ctx, s.inactivity)
}

// Run refreshes worker health and evicts idle conversations periodically
// until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.RefreshHealth(ctx)
		every(ctx, s.healthInterval, func() { s.RefreshHealth(ctx) })
		return nil
	})
	g.Go(func() error {
		every(ctx, s.cleanupInterval, func() { s.EvictStale(ctx) })
		return nil
	})
	return g.Wait()
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
