package analysis

import (
	"time"

	"github.com/verte-zerg/ftclutch/internal/metrics"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

// Option configures a Service.
type Option func(*Service)

// WithSnapshots persists every computed summary to saver.
func WithSnapshots(saver SnapshotSaver) Option {
	return func(s *Service) {
		s.snapshots = saver
	}
}

// WithMetrics records query and shot counters on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProber replaces the Monte Carlo estimator. The prober is still wrapped
// in the configured cache.
func WithProber(p winprob.Prober) Option {
	return func(s *Service) {
		s.prober = p
	}
}

// WithClock overrides the time source used to stamp summaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
