// Package analysis runs player queries: it loads free throws, evaluates them
// and memoizes the resulting summaries.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/verte-zerg/ftclutch/internal/metrics"
	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/shots"
	"github.com/verte-zerg/ftclutch/internal/telemetry"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

// ErrNoData means the player has no parseable free throws.
var ErrNoData = errors.New("no shot data found for this player")

const defaultMemoSize = 64

// Source supplies the player directory and raw shot events.
type Source interface {
	Players(ctx context.Context) ([]string, error)
	FreeThrows(ctx context.Context, player string) ([]model.ShotEvent, error)
}

// SnapshotSaver persists computed summaries.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap model.Snapshot) (int64, error)
}

// Service answers player queries. It is safe for concurrent use.
type Service struct {
	source    Source
	snapshots SnapshotSaver
	metrics   *metrics.Manager
	prober    winprob.Prober
	now       func() time.Time

	params model.EstimatorParams
	cfg    model.AnalysisConfig

	// mu serialises access to the estimator and its cache counters.
	mu         sync.Mutex
	cached     *winprob.Cached
	lastHits   uint64
	lastMisses uint64

	memo  *lru.Cache[string, model.PlayerSummary]
	group singleflight.Group
}

// New builds a Service reading from source.
func New(source Source, params model.EstimatorParams, cfg model.AnalysisConfig, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	s := &Service{
		source: source,
		params: params,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.prober == nil {
		method, err := winprob.ParseMethod(params.Method)
		if err != nil {
			return nil, err
		}
		est := winprob.NewEstimator(winprob.Params{
			Trials:               params.Trials,
			SecondsPerPossession: params.SecondsPerPossession,
			PointsPerPossession:  params.PointsPerPossession,
			Method:               method,
		}, params.Seed)
		eff := est.Params()
		s.params.Trials = eff.Trials
		s.params.SecondsPerPossession = eff.SecondsPerPossession
		s.params.PointsPerPossession = eff.PointsPerPossession
		s.params.Method = string(eff.Method)
		s.prober = est
	}

	cached, err := winprob.NewCached(s.prober, params.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create estimator cache: %w", err)
	}
	s.cached = cached

	memoSize := cfg.MemoSize
	if memoSize <= 0 {
		memoSize = defaultMemoSize
	}
	memo, err := lru.New[string, model.PlayerSummary](memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary memo: %w", err)
	}
	s.memo = memo
	return s, nil
}

// Params returns the effective estimator parameters.
func (s *Service) Params() model.EstimatorParams {
	return s.params
}

// Players lists the players known to the source.
func (s *Service) Players(ctx context.Context) ([]string, error) {
	players, err := s.source.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// Analyze returns the summary for player. Repeated queries are served from
// the memo; concurrent queries for the same player share one computation.
// A player without parseable shots yields ErrNoData.
func (s *Service) Analyze(ctx context.Context, player string) (model.PlayerSummary, error) {
	start := time.Now()
	if summary, ok := s.memo.Get(player); ok {
		s.observe(metrics.OutcomeMemo, start)
		return summary, nil
	}

	v, err, _ := s.group.Do(player, func() (any, error) {
		return s.compute(ctx, player)
	})
	switch {
	case errors.Is(err, ErrNoData):
		s.observe(metrics.OutcomeNoData, start)
		return model.PlayerSummary{Player: player}, err
	case err != nil:
		s.observe(metrics.OutcomeError, start)
		return model.PlayerSummary{}, err
	}
	s.observe(metrics.OutcomeOK, start)
	return v.(model.PlayerSummary), nil
}

func (s *Service) compute(ctx context.Context, player string) (model.PlayerSummary, error) {
	runID := uuid.NewString()
	log := telemetry.L().With("run", runID, "player", player)
	start := time.Now()

	events, err := s.source.FreeThrows(ctx, player)
	if err != nil {
		return model.PlayerSummary{}, fmt.Errorf("failed to load free throws for %s: %w", player, err)
	}
	if err := ctx.Err(); err != nil {
		return model.PlayerSummary{}, err
	}

	summary, ok := s.aggregate(events, func(perr *shots.ParseError) {
		log.Debug("dropped shot", "field", perr.Field, "value", perr.Value)
	})
	if !ok {
		log.Info("no shot data", "events", len(events), "dropped", summary.Dropped)
		return model.PlayerSummary{}, ErrNoData
	}
	summary.Player = player
	summary.ComputedAt = s.now()
	s.memo.Add(player, summary)

	log.Info("analysis complete",
		"shots", summary.Shots,
		"dropped", summary.Dropped,
		"clutch", summary.ClutchShots,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if s.snapshots != nil {
		snap := model.NewSnapshot(runID, summary, s.params)
		if _, err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			log.Warn("failed to save snapshot", "err", err)
		}
	}
	return summary, nil
}

func (s *Service) aggregate(events []model.ShotEvent, onDrop func(*shots.ParseError)) (model.PlayerSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := shots.New(s.cached,
		shots.WithClutchThreshold(s.cfg.ClutchThreshold),
		shots.WithMaxShots(s.cfg.MaxShots),
		shots.WithDropHook(func(perr *shots.ParseError) {
			if s.metrics != nil {
				s.metrics.IncShotDropped(perr.Field)
			}
			onDrop(perr)
		}),
		shots.WithEvalHook(func() {
			if s.metrics != nil {
				s.metrics.IncShotParsed()
			}
		}),
	)
	summary, ok := agg.Aggregate(events)
	s.flushCacheStats()
	return summary, ok
}

// flushCacheStats forwards cache counter deltas to metrics. Callers hold mu.
func (s *Service) flushCacheStats() {
	hits, misses := s.cached.Stats()
	if s.metrics != nil {
		s.metrics.AddCacheHits(hits - s.lastHits)
		s.metrics.AddEstimatorCalls(misses - s.lastMisses)
	}
	s.lastHits, s.lastMisses = hits, misses
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveQuery(outcome, time.Since(start))
	}
}

// Prober returns a cached win probability prober that is safe to call while
// queries run.
func (s *Service) Prober() winprob.Prober {
	return lockedProber{s: s}
}

// Forget drops the memoized summary for player.
func (s *Service) Forget(player string) {
	s.memo.Remove(player)
}

// Purge drops every memoized summary and cached win probability.
func (s *Service) Purge() {
	s.memo.Purge()
	s.mu.Lock()
	s.cached.Purge()
	s.mu.Unlock()
}

type lockedProber struct {
	s *Service
}

func (p lockedProber) WinProbability(margin, secondsRemaining int) float64 {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	v := p.s.cached.WinProbability(margin, secondsRemaining)
	p.s.flushCacheStats()
	return v
}
