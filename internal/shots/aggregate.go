package shots

import (
	"errors"
	"strconv"

	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

// ClutchThreshold is the leverage a shot must exceed to count as clutch.
const ClutchThreshold = 0.15

// OvertimeLabel is the bucket for the fourth period and every overtime.
const OvertimeLabel = "4+"

// PeriodLabels lists the per-period buckets in display order.
var PeriodLabels = []string{"1", "2", "3", OvertimeLabel}

// Aggregator evaluates shots against a win probability Prober.
type Aggregator struct {
	prober          winprob.Prober
	clutchThreshold float64
	maxShots        int
	onDrop          func(*ParseError)
	onEval          func()
}

// New returns an Aggregator that probes leverage through p.
func New(p winprob.Prober, opts ...Option) *Aggregator {
	a := &Aggregator{
		prober:          p,
		clutchThreshold: ClutchThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ClutchThreshold returns the configured clutch threshold.
func (a *Aggregator) ClutchThreshold() float64 {
	return a.clutchThreshold
}

// Evaluate parses each event and computes its leverage. Events that fail to
// parse are skipped and counted in dropped.
func (a *Aggregator) Evaluate(events []model.ShotEvent) (results []model.ShotResult, dropped int) {
	if a.maxShots > 0 && len(events) > a.maxShots {
		events = events[:a.maxShots]
	}
	results = make([]model.ShotResult, 0, len(events))
	for _, ev := range events {
		shot, err := ParseShot(ev)
		if err != nil {
			dropped++
			var perr *ParseError
			if a.onDrop != nil && errors.As(err, &perr) {
				a.onDrop(perr)
			}
			continue
		}
		lev := winprob.LeverageOf(a.prober, shot.MarginAtShot, shot.SecondsRemaining)
		results = append(results, model.ShotResult{Shot: shot, Leverage: lev})
		if a.onEval != nil {
			a.onEval()
		}
	}
	return results, dropped
}

// Aggregate evaluates events and reduces them into a summary. The boolean is
// false when no event could be parsed.
func (a *Aggregator) Aggregate(events []model.ShotEvent) (model.PlayerSummary, bool) {
	results, dropped := a.Evaluate(events)
	if len(results) == 0 {
		return model.PlayerSummary{Dropped: dropped}, false
	}
	summary := Reduce(results, a.clutchThreshold)
	summary.Dropped = dropped
	return summary, true
}

// Reduce computes the summary metrics over evaluated shots.
func Reduce(results []model.ShotResult, clutchThreshold float64) model.PlayerSummary {
	summary := model.PlayerSummary{
		Shots:   len(results),
		Results: results,
	}
	if len(results) == 0 {
		summary.PerPeriod = periodRates(nil)
		return summary
	}
	var makes, weightSum, weightedMakes float64
	var clutchMakes int
	for _, r := range results {
		w := r.Leverage.Weight
		weightSum += w
		if r.Shot.IsMake {
			makes++
			weightedMakes += w
		}
		if r.Leverage.Leverage > clutchThreshold {
			summary.ClutchShots++
			if r.Shot.IsMake {
				clutchMakes++
			}
		}
	}
	summary.RawPercentage = 100 * makes / float64(len(results))
	if weightSum > 0 {
		summary.PressureAdjustedPercentage = 100 * weightedMakes / weightSum
	}
	if summary.ClutchShots > 0 {
		summary.TrueClutchPercentage = 100 * float64(clutchMakes) / float64(summary.ClutchShots)
	}
	summary.PerPeriod = periodRates(results)
	return summary
}

// PeriodLabel maps a period number to its bucket label.
func PeriodLabel(period int) string {
	if period >= 4 {
		return OvertimeLabel
	}
	return strconv.Itoa(period)
}

func periodRates(results []model.ShotResult) []model.PeriodRate {
	idx := make(map[string]int, len(PeriodLabels))
	out := make([]model.PeriodRate, len(PeriodLabels))
	for i, label := range PeriodLabels {
		out[i] = model.PeriodRate{Label: label}
		idx[label] = i
	}
	for _, r := range results {
		i, ok := idx[PeriodLabel(r.Shot.Period)]
		if !ok {
			continue
		}
		out[i].Attempts++
		if r.Shot.IsMake {
			out[i].Makes++
		}
	}
	for i := range out {
		if out[i].Attempts > 0 {
			out[i].Rate = float64(out[i].Makes) / float64(out[i].Attempts)
		}
	}
	return out
}
