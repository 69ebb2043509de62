// Package winprob estimates win probability and free-throw leverage by
// simulating the remaining possessions of a game.
package winprob

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/verte-zerg/ftclutch/internal/model"
)

// Simulation constants. They are kept exactly as calibrated; Params may
// override them for experiments but the defaults never change.
const (
	DefaultTrials        = 10000
	SecondsPerPossession = 13
	PointsPerPossession  = 1.08
	SmoothingFloor       = 0.05
)

// Method selects how per-trial point totals are drawn.
type Method string

const (
	// MethodAggregate draws each team total as Poisson(possessions*rate),
	// the exact distribution of a sum of per-possession Poisson draws.
	MethodAggregate Method = "aggregate"
	// MethodPossession draws every possession individually and sums rows.
	MethodPossession Method = "possession"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodAggregate:
		return MethodAggregate, nil
	case MethodPossession:
		return MethodPossession, nil
	default:
		return "", fmt.Errorf("unknown estimator method %q (use aggregate or possession)", s)
	}
}

// Params configures an Estimator. Zero fields fall back to the defaults.
type Params struct {
	Trials               int
	SecondsPerPossession int
	PointsPerPossession  float64
	Method               Method
}

// DefaultParams returns the calibrated simulation parameters.
func DefaultParams() Params {
	return Params{
		Trials:               DefaultTrials,
		SecondsPerPossession: SecondsPerPossession,
		PointsPerPossession:  PointsPerPossession,
		Method:               MethodAggregate,
	}
}

func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.Trials <= 0 {
		p.Trials = def.Trials
	}
	if p.SecondsPerPossession <= 0 {
		p.SecondsPerPossession = def.SecondsPerPossession
	}
	if p.PointsPerPossession <= 0 {
		p.PointsPerPossession = def.PointsPerPossession
	}
	if p.Method == "" {
		p.Method = def.Method
	}
	return p
}

// Prober reports the probability that the shooting team wins from a state.
type Prober interface {
	WinProbability(margin, secondsRemaining int) float64
}

// Estimator runs the Monte Carlo simulation. It is not safe for concurrent use.
type Estimator struct {
	params Params
	rnd    *rand.Rand

	teamA []int
	teamB []int
	draws []int
}

// NewEstimator returns an Estimator. A zero seed seeds from the current time.
func NewEstimator(params Params, seed uint64) *Estimator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Estimator{
		params: params.withDefaults(),
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Params returns the effective parameters.
func (e *Estimator) Params() Params {
	return e.params
}

// WinProbability estimates P(win) using the configured trial count.
func (e *Estimator) WinProbability(margin, secondsRemaining int) float64 {
	return e.WinProbabilityTrials(margin, secondsRemaining, e.params.Trials)
}

// WinProbabilityTrials estimates P(win) for the shooting team leading by
// margin with secondsRemaining left. Ties do not count as wins.
func (e *Estimator) WinProbabilityTrials(margin, secondsRemaining, trials int) float64 {
	if secondsRemaining <= 0 {
		return Terminal(margin)
	}
	if trials <= 0 {
		trials = e.params.Trials
	}
	possessions := Possessions(secondsRemaining, e.params.SecondsPerPossession)
	e.teamA = grow(e.teamA, trials)
	e.teamB = grow(e.teamB, trials)
	switch e.params.Method {
	case MethodPossession:
		e.sumPossessions(e.teamA, possessions)
		e.sumPossessions(e.teamB, possessions)
	default:
		lam := float64(possessions) * e.params.PointsPerPossession
		fillPoisson(e.rnd, lam, e.teamA)
		fillPoisson(e.rnd, lam, e.teamB)
	}
	wins := 0
	for i := 0; i < trials; i++ {
		if margin+e.teamA[i]-e.teamB[i] > 0 {
			wins++
		}
	}
	return float64(wins) / float64(trials)
}

// sumPossessions fills totals with row sums of a trials x possessions block
// of per-possession draws.
func (e *Estimator) sumPossessions(totals []int, possessions int) {
	e.draws = grow(e.draws, len(totals)*possessions)
	fillPoisson(e.rnd, e.params.PointsPerPossession, e.draws)
	for i := range totals {
		row := e.draws[i*possessions : (i+1)*possessions]
		sum := 0
		for _, v := range row {
			sum += v
		}
		totals[i] = sum
	}
}

// Leverage evaluates one free throw at the given state.
func (e *Estimator) Leverage(margin, secondsRemaining int) model.LeverageResult {
	return LeverageOf(e, margin, secondsRemaining)
}

// Terminal is the decided-at-the-buzzer outcome for a margin.
func Terminal(margin int) float64 {
	switch {
	case margin > 0:
		return 1.0
	case margin == 0:
		return 0.5
	default:
		return 0.0
	}
}

// Possessions converts remaining seconds into a possession count (at least 1).
func Possessions(secondsRemaining, secondsPerPossession int) int {
	if secondsPerPossession <= 0 {
		secondsPerPossession = SecondsPerPossession
	}
	n := secondsRemaining / secondsPerPossession
	if n < 1 {
		return 1
	}
	return n
}

// Weight smooths a leverage value into an averaging weight.
func Weight(leverage float64) float64 {
	return math.Sqrt(leverage) + SmoothingFloor
}

// NewLeverage builds a LeverageResult from the two outcome probabilities.
func NewLeverage(ifMake, ifMiss float64) model.LeverageResult {
	lev := math.Abs(ifMake - ifMiss)
	return model.LeverageResult{
		WinProbabilityIfMake: ifMake,
		WinProbabilityIfMiss: ifMiss,
		Leverage:             lev,
		Weight:               Weight(lev),
	}
}

// LeverageOf probes the made (margin+1) and missed (margin) outcomes.
func LeverageOf(p Prober, margin, secondsRemaining int) model.LeverageResult {
	ifMake := p.WinProbability(margin+1, secondsRemaining)
	ifMiss := p.WinProbability(margin, secondsRemaining)
	return NewLeverage(ifMake, ifMiss)
}

func grow(buf []int, n int) []int {
	if cap(buf) < n {
		return make([]int, n)
	}
	return buf[:n]
}
