// Package stats renders player summaries, shot tables and leverage curves as text.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

const (
	sparkChars    = " .:-=+*#%@"
	barFull       = '█'
	defaultBarLen = 30
	clockLayout   = "%d:%02d"
)

// NoDataNotice is shown when a player has no parseable free throws.
const NoDataNotice = "No shot data found for this player."

// FormatPercent formats a 0-100 percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatDelta formats a signed percentage point difference.
func FormatDelta(v float64) string {
	return fmt.Sprintf("%+.1f pts", v)
}

// FormatClock renders seconds remaining as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf(clockLayout, seconds/60, seconds%60)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.Abs(hi-lo) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// RenderSummary prints the three headline metrics.
func RenderSummary(w io.Writer, s model.PlayerSummary) error {
	lines := []string{
		s.Player,
		fmt.Sprintf("Free throws: %d (dropped %d)", s.Shots, s.Dropped),
		fmt.Sprintf("Raw FT%%:               %s", FormatPercent(s.RawPercentage)),
		fmt.Sprintf("Pressure-adjusted FT%%: %s (%s)", FormatPercent(s.PressureAdjustedPercentage), FormatDelta(s.PressureDelta())),
		fmt.Sprintf("True clutch FT%%:       %s (%d clutch attempts)", FormatPercent(s.TrueClutchPercentage), s.ClutchShots),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderPeriodBars prints a horizontal bar per period bucket.
func RenderPeriodBars(w io.Writer, periods []model.PeriodRate, barLen int) error {
	if barLen <= 0 {
		barLen = defaultBarLen
	}
	if _, err := fmt.Fprintln(w, "FT% by period"); err != nil {
		return err
	}
	headers := []string{"Period", "Rate", "Made", ""}
	rows := make([][]string, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, []string{
			p.Label,
			FormatPercent(p.Rate * 100),
			fmt.Sprintf("%d/%d", p.Makes, p.Attempts),
			Bar(p.Rate, barLen),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// Bar renders a fraction in [0,1] as a run of block characters.
func Bar(fraction float64, length int) string {
	fraction = math.Min(math.Max(fraction, 0), 1)
	n := int(math.Round(fraction * float64(length)))
	return strings.Repeat(string(barFull), n)
}

// ShotRows formats results as table rows: period, clock, margin, result,
// win probability if made and missed, leverage.
func ShotRows(results []model.ShotResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		outcome := "made"
		if !r.Shot.IsMake {
			outcome = "MISS"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Shot.Period),
			FormatClock(r.Shot.SecondsRemaining),
			fmt.Sprintf("%+d", r.Shot.MarginAtShot),
			outcome,
			fmt.Sprintf("%.3f", r.Leverage.WinProbabilityIfMake),
			fmt.Sprintf("%.3f", r.Leverage.WinProbabilityIfMiss),
			fmt.Sprintf("%.3f", r.Leverage.Leverage),
		})
	}
	return rows
}

// ShotHeaders are the column titles matching ShotRows.
var ShotHeaders = []string{"Per", "Clock", "Margin", "Result", "WP make", "WP miss", "Leverage"}

// RenderShotTable prints the highest-leverage shots, at most limit rows.
func RenderShotTable(w io.Writer, results []model.ShotResult, limit int) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, NoDataNotice)
		return err
	}
	top := TopShotsByLeverage(results, limit)
	if _, err := fmt.Fprintf(w, "Highest-leverage free throws (%d of %d)\n", len(top), len(results)); err != nil {
		return err
	}
	rightAlign := map[int]bool{0: true, 1: true, 2: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(ShotHeaders, ShotRows(top), rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// LeverageSeries computes one leverage curve per margin over seconds.
func LeverageSeries(p winprob.Prober, margins, seconds []int) []Series {
	series := make([]Series, 0, len(margins))
	for _, m := range margins {
		series = append(series, Series{
			Name:   fmt.Sprintf("margin %+d", m),
			Values: winprob.LeverageCurve(p, m, seconds),
		})
	}
	return series
}

// RenderLeverageCurves plots free-throw leverage against time remaining for
// each margin. seconds should run from most to least time left.
func RenderLeverageCurves(w io.Writer, p winprob.Prober, margins, seconds []int, totalWidth, height int, forceColor bool) error {
	if len(seconds) == 0 || len(margins) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, LeverageSeries(p, margins, seconds), PlotOptions{
		Title:      "Free-throw leverage by time remaining",
		Width:      width,
		Height:     height,
		Min:        0,
		Max:        1,
		XStart:     FormatClock(seconds[0]),
		XEnd:       FormatClock(seconds[len(seconds)-1]),
		ForceColor: forceColor,
	})
}

// RenderHistory prints stored snapshots and a trend line of the raw and
// pressure-adjusted percentages, oldest to newest.
func RenderHistory(w io.Writer, snaps []model.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots found.")
		return err
	}
	headers := []string{"When", "Player", "Shots", "Raw", "Pressure", "Clutch", "Trials", "Method"}
	rows := make([][]string, 0, len(snaps))
	raw := make([]float64, 0, len(snaps))
	pressure := make([]float64, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		raw = append(raw, s.Raw)
		pressure = append(pressure, s.Pressure)
	}
	for _, s := range snaps {
		rows = append(rows, []string{
			s.ComputedAt.Local().Format("2006-01-02 15:04"),
			s.Player,
			fmt.Sprintf("%d", s.Shots),
			FormatPercent(s.Raw),
			FormatPercent(s.Pressure),
			FormatPercent(s.Clutch),
			fmt.Sprintf("%d", s.Trials),
			s.Method,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(snaps) > 1 {
		if _, err := fmt.Fprintf(w, "Raw trend:      %s\n", Sparkline(raw)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Pressure trend: %s\n", Sparkline(MovingAverage(pressure, 3))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
