package analysis_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/verte-zerg/ftclutch/internal/analysis"
	"github.com/verte-zerg/ftclutch/internal/metrics"
	"github.com/verte-zerg/ftclutch/internal/model"
)

type fakeSource struct {
	events map[string][]model.ShotEvent
	err    error
	calls  atomic.Int32
	gate   chan struct{}
}

func (f *fakeSource) Players(context.Context) ([]string, error) {
	names := make([]string, 0, len(f.events))
	for name := range f.events {
		names = append(names, name)
	}
	return names, f.err
}

func (f *fakeSource) FreeThrows(_ context.Context, player string) ([]model.ShotEvent, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.events[player], nil
}

type fakeSaver struct {
	mu    sync.Mutex
	snaps []model.Snapshot
	err   error
}

func (f *fakeSaver) SaveSnapshot(_ context.Context, snap model.Snapshot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.snaps = append(f.snaps, snap)
	return int64(len(f.snaps)), nil
}

// swingProber makes every free throw with under a minute left high leverage.
type swingProber struct{}

func (swingProber) WinProbability(margin, seconds int) float64 {
	if seconds > 60 {
		return 0.5
	}
	switch {
	case margin > 0:
		return 0.9
	case margin == 0:
		return 0.5
	default:
		return 0.1
	}
}

func ft(period int, margin, clock string, made bool) model.ShotEvent {
	desc := "Nash Free Throw 1 of 2"
	if !made {
		desc = "MISS " + desc
	}
	return model.ShotEvent{Period: period, ScoreMargin: margin, TimeRemaining: clock, HomeDescription: desc}
}

func newSource() *fakeSource {
	return &fakeSource{events: map[string][]model.ShotEvent{
		"Steve Nash": {
			ft(1, "2", "8:00", true),
			ft(4, "TIE", "0:30", true),
			ft(4, "-1", "0:20", false),
			ft(2, "bad", "1:00", true),
		},
		"Ben Wallace": {
			ft(1, "1", "nope", false),
		},
	}}
}

func TestService(t *testing.T) {
	Convey("Given a service over a fake source", t, func() {
		src := newSource()
		saver := &fakeSaver{}
		m := metrics.NewManager()
		fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		svc, err := analysis.New(src,
			model.EstimatorParams{Trials: 10000, Method: "aggregate", CacheSize: 128},
			model.AnalysisConfig{},
			analysis.WithProber(swingProber{}),
			analysis.WithSnapshots(saver),
			analysis.WithMetrics(m),
			analysis.WithClock(func() time.Time { return fixed }),
		)
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When a player is analysed twice", func() {
			first, err1 := svc.Analyze(ctx, "Steve Nash")
			second, err2 := svc.Analyze(ctx, "Steve Nash")

			Convey("Then the source is read once and the summary is reused", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(src.calls.Load(), ShouldEqual, 1)
				So(second, ShouldResemble, first)
			})

			Convey("Then the summary carries the player and the metrics", func() {
				So(first.Player, ShouldEqual, "Steve Nash")
				So(first.ComputedAt.Equal(fixed), ShouldBeTrue)
				So(first.Shots, ShouldEqual, 3)
				So(first.Dropped, ShouldEqual, 1)
				So(first.ClutchShots, ShouldEqual, 2)
				So(first.TrueClutchPercentage, ShouldAlmostEqual, 50, 1e-9)
			})

			Convey("Then exactly one snapshot is stored", func() {
				So(saver.snaps, ShouldHaveLength, 1)
				So(saver.snaps[0].Player, ShouldEqual, "Steve Nash")
				So(saver.snaps[0].RunID, ShouldNotBeEmpty)
			})

			Convey("Then counters reflect the query", func() {
				series, err := testutil.GatherAndCount(m.Registry(), "ftclutch_queries_total")
				So(err, ShouldBeNil)
				So(series, ShouldEqual, 2)
			})
		})

		Convey("When the player has no parseable shots", func() {
			_, err := svc.Analyze(ctx, "Ben Wallace")

			Convey("Then ErrNoData is returned and nothing is stored", func() {
				So(errors.Is(err, analysis.ErrNoData), ShouldBeTrue)
				So(saver.snaps, ShouldBeEmpty)
			})
		})

		Convey("When a player is forgotten", func() {
			_, _ = svc.Analyze(ctx, "Steve Nash")
			svc.Forget("Steve Nash")
			_, _ = svc.Analyze(ctx, "Steve Nash")

			Convey("Then the next query recomputes", func() {
				So(src.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When every memo is purged", func() {
			_, _ = svc.Analyze(ctx, "Steve Nash")
			_, _ = svc.Analyze(ctx, "Reggie Miller")
			svc.Purge()
			_, _ = svc.Analyze(ctx, "Steve Nash")

			Convey("Then queries read the source again", func() {
				So(src.calls.Load(), ShouldEqual, 3)
			})
		})

		Convey("When the snapshot store fails", func() {
			saver.err = errors.New("disk full")
			summary, err := svc.Analyze(ctx, "Steve Nash")

			Convey("Then the query still succeeds", func() {
				So(err, ShouldBeNil)
				So(summary.Shots, ShouldEqual, 3)
			})
		})

		Convey("When the prober is used directly", func() {
			p := svc.Prober()

			Convey("Then it serves the wrapped probabilities", func() {
				So(p.WinProbability(1, 30), ShouldEqual, 0.9)
				So(p.WinProbability(0, 0), ShouldEqual, 0.5)
			})
		})
	})

	Convey("Given a failing source", t, func() {
		src := &fakeSource{err: errors.New("database is locked")}
		svc, err := analysis.New(src, model.EstimatorParams{}, model.AnalysisConfig{}, analysis.WithProber(swingProber{}))
		So(err, ShouldBeNil)

		Convey("When a player is analysed", func() {
			_, err := svc.Analyze(context.Background(), "Steve Nash")

			Convey("Then the source error is wrapped", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, analysis.ErrNoData), ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "database is locked")
			})
		})
	})

	Convey("Given concurrent queries for one player", t, func() {
		src := newSource()
		src.gate = make(chan struct{})
		svc, err := analysis.New(src, model.EstimatorParams{}, model.AnalysisConfig{}, analysis.WithProber(swingProber{}))
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		results := make([]model.PlayerSummary, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = svc.Analyze(context.Background(), "Steve Nash")
			}(i)
		}
		time.Sleep(100 * time.Millisecond)
		close(src.gate)
		wg.Wait()

		Convey("Then the source is read once", func() {
			So(src.calls.Load(), ShouldEqual, 1)
			for _, r := range results {
				So(r.Shots, ShouldEqual, 3)
			}
		})
	})
}

func TestServiceRejectsUnknownMethod(t *testing.T) {
	Convey("Given an unknown estimator method", t, func() {
		_, err := analysis.New(newSource(), model.EstimatorParams{Method: "quantum"}, model.AnalysisConfig{})

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestServiceWithEstimator(t *testing.T) {
	Convey("Given a service over the real estimator", t, func() {
		svc, err := analysis.New(newSource(), model.EstimatorParams{Trials: 2000, Seed: 11, CacheSize: 64}, model.AnalysisConfig{})
		So(err, ShouldBeNil)

		Convey("When a player is analysed", func() {
			summary, err := svc.Analyze(context.Background(), "Steve Nash")

			Convey("Then the defaults are filled in and metrics stay in range", func() {
				So(err, ShouldBeNil)
				So(svc.Params().Method, ShouldEqual, "aggregate")
				So(svc.Params().SecondsPerPossession, ShouldEqual, 13)
				So(summary.RawPercentage, ShouldAlmostEqual, 100.0*2/3, 1e-9)
				So(summary.PressureAdjustedPercentage, ShouldBeBetweenOrEqual, 0, 100)
			})
		})
	})
}
