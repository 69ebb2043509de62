package stats

import (
	"context"
	"errors"
	"io"

	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

// Analyzer computes a player summary.
type Analyzer interface {
	Analyze(ctx context.Context, player string) (model.PlayerSummary, error)
}

// History lists stored snapshots.
type History interface {
	ListSnapshots(ctx context.Context, filter model.HistoryFilter) ([]model.Snapshot, error)
}

// Report contains precomputed data for rendering one player.
type Report struct {
	Summary model.PlayerSummary
	NoData  bool
	History []model.Snapshot
}

// ReportConfig selects what BuildReport loads.
type ReportConfig struct {
	Player       string
	HistoryLimit int
}

// BuildReport analyses the player and loads their snapshot history. A
// no-data outcome is reported through Report.NoData, not as an error. hist
// may be nil.
func BuildReport(ctx context.Context, a Analyzer, hist History, cfg ReportConfig, noData error) (Report, error) {
	summary, err := a.Analyze(ctx, cfg.Player)
	report := Report{Summary: summary}
	switch {
	case noData != nil && errors.Is(err, noData):
		report.NoData = true
		report.Summary.Player = cfg.Player
	case err != nil:
		return Report{}, err
	}

	if hist != nil && cfg.HistoryLimit > 0 {
		snaps, err := hist.ListSnapshots(ctx, model.HistoryFilter{Player: cfg.Player, Limit: cfg.HistoryLimit})
		if err != nil {
			return Report{}, err
		}
		report.History = snaps
	}
	return report, nil
}

// RenderOptions controls which sections Render writes.
type RenderOptions struct {
	ShotLimit  int
	ShowShots  bool
	ShowCurves bool
	Curves     CurveOptions
}

// CurveOptions configures the leverage curve section.
type CurveOptions struct {
	Prober     winprob.Prober
	Margins    []int
	Seconds    []int
	TotalWidth int
	Height     int
	ForceColor bool
}

// Render writes the report.
func (r Report) Render(w io.Writer, opts RenderOptions) error {
	if r.NoData {
		if _, err := io.WriteString(w, r.Summary.Player+"\n"+NoDataNotice+"\n"); err != nil {
			return err
		}
		return nil
	}
	if err := RenderSummary(w, r.Summary); err != nil {
		return err
	}
	if err := RenderPeriodBars(w, r.Summary.PerPeriod, 0); err != nil {
		return err
	}
	if opts.ShowShots {
		if err := RenderShotTable(w, r.Summary.Results, opts.ShotLimit); err != nil {
			return err
		}
	}
	if opts.ShowCurves && opts.Curves.Prober != nil {
		c := opts.Curves
		if err := RenderLeverageCurves(w, c.Prober, c.Margins, c.Seconds, c.TotalWidth, c.Height, c.ForceColor); err != nil {
			return err
		}
	}
	if len(r.History) > 0 {
		if err := RenderHistory(w, r.History); err != nil {
			return err
		}
	}
	return nil
}
