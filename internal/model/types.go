// Package model defines shared data structures.
package model

import "time"

// ShotEvent is one raw free-throw attempt as supplied by a data source.
type ShotEvent struct {
	Period             int
	ScoreMargin        string
	TimeRemaining      string
	HomeDescription    string
	VisitorDescription string
}

// ParsedShot is a ShotEvent whose fields were validated.
type ParsedShot struct {
	IsMake           bool
	MarginAtShot     int
	SecondsRemaining int
	Period           int
}

// LeverageResult captures the win probability swing of one free throw.
type LeverageResult struct {
	WinProbabilityIfMake float64
	WinProbabilityIfMiss float64
	Leverage             float64
	Weight               float64
}

// ShotResult is one evaluated shot.
type ShotResult struct {
	Shot     ParsedShot
	Leverage LeverageResult
}

// PeriodRate is the make rate for one period bucket.
type PeriodRate struct {
	Label    string
	Attempts int
	Makes    int
	Rate     float64
}

// PlayerSummary holds the metrics computed for one player query.
type PlayerSummary struct {
	Player                     string
	Shots                      int
	Dropped                    int
	ClutchShots                int
	RawPercentage              float64
	PressureAdjustedPercentage float64
	TrueClutchPercentage       float64
	PerPeriod                  []PeriodRate
	Results                    []ShotResult
	ComputedAt                 time.Time
}

// PerPeriodPercentage maps period labels to make rates in [0,1].
func (s PlayerSummary) PerPeriodPercentage() map[string]float64 {
	out := make(map[string]float64, len(s.PerPeriod))
	for _, p := range s.PerPeriod {
		out[p.Label] = p.Rate
	}
	return out
}

// PressureDelta is the pressure-adjusted percentage minus the raw percentage.
func (s PlayerSummary) PressureDelta() float64 {
	return s.PressureAdjustedPercentage - s.RawPercentage
}

// EstimatorParams configures the win probability simulation.
type EstimatorParams struct {
	Trials               int
	SecondsPerPossession int
	PointsPerPossession  float64
	Method               string
	CacheSize            int
	Seed                 uint64
}

// AnalysisConfig configures the aggregation and query layer.
type AnalysisConfig struct {
	ClutchThreshold float64
	MaxShots        int
	MemoSize        int
}

// Snapshot is a persisted summary together with the parameters that produced it.
type Snapshot struct {
	ID          int64
	RunID       string
	Player      string
	ComputedAt  time.Time
	Trials      int
	Method      string
	Shots       int
	Dropped     int
	ClutchShots int
	Raw         float64
	Pressure    float64
	Clutch      float64
	PerPeriod   []PeriodRate
}

// NewSnapshot captures the persisted part of a summary.
func NewSnapshot(runID string, summary PlayerSummary, params EstimatorParams) Snapshot {
	return Snapshot{
		RunID:       runID,
		Player:      summary.Player,
		ComputedAt:  summary.ComputedAt,
		Trials:      params.Trials,
		Method:      params.Method,
		Shots:       summary.Shots,
		Dropped:     summary.Dropped,
		ClutchShots: summary.ClutchShots,
		Raw:         summary.RawPercentage,
		Pressure:    summary.PressureAdjustedPercentage,
		Clutch:      summary.TrueClutchPercentage,
		PerPeriod:   append([]PeriodRate(nil), summary.PerPeriod...),
	}
}

// HistoryFilter narrows a snapshot listing.
type HistoryFilter struct {
	Player string
	Since  *time.Time
	Limit  int
}
