package winprob

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestWinProbabilityTerminal(t *testing.T) {
	e := NewEstimator(DefaultParams(), 1)
	cases := []struct {
		margin  int
		seconds int
		want    float64
	}{
		{margin: 3, seconds: 0, want: 1.0},
		{margin: 1, seconds: -5, want: 1.0},
		{margin: 0, seconds: 0, want: 0.5},
		{margin: -1, seconds: 0, want: 0.0},
		{margin: -12, seconds: -1, want: 0.0},
	}
	for _, tc := range cases {
		if got := e.WinProbability(tc.margin, tc.seconds); got != tc.want {
			t.Fatalf("margin=%d seconds=%d: expected %v, got %v", tc.margin, tc.seconds, tc.want, got)
		}
	}
}

func TestWinProbabilityRangeAndMonotonic(t *testing.T) {
	for _, method := range []Method{MethodAggregate, MethodPossession} {
		params := DefaultParams()
		params.Method = method
		params.Trials = 20000
		e := NewEstimator(params, 42)
		prev := -1.0
		for margin := -8; margin <= 8; margin++ {
			p := e.WinProbability(margin, 90)
			if p < 0 || p > 1 {
				t.Fatalf("%s: probability out of range for margin %d: %v", method, margin, p)
			}
			if p < prev-0.02 {
				t.Fatalf("%s: expected non-decreasing estimate, margin %d gave %v after %v", method, margin, p, prev)
			}
			prev = p
		}
	}
}

func TestWinProbabilityTiedGame(t *testing.T) {
	params := DefaultParams()
	params.Trials = 20000
	e := NewEstimator(params, 7)
	// 90s -> 6 possessions; tied margin wins slightly under half the time
	// because ties are losses.
	p := e.WinProbability(0, 90)
	if p < 0.42 || p > 0.47 {
		t.Fatalf("expected tied-game estimate near 0.44, got %v", p)
	}
}

func TestMethodsAgree(t *testing.T) {
	agg := DefaultParams()
	agg.Trials = 20000
	pos := agg
	pos.Method = MethodPossession
	ea := NewEstimator(agg, 11)
	ep := NewEstimator(pos, 12)
	for _, state := range [][2]int{{-2, 45}, {1, 120}, {3, 400}} {
		a := ea.WinProbability(state[0], state[1])
		b := ep.WinProbability(state[0], state[1])
		if math.Abs(a-b) > 0.03 {
			t.Fatalf("methods disagree at margin=%d seconds=%d: %v vs %v", state[0], state[1], a, b)
		}
	}
}

func TestWinProbabilityTrialsOverride(t *testing.T) {
	e := NewEstimator(DefaultParams(), 3)
	p := e.WinProbabilityTrials(2, 30, 1)
	if p != 0 && p != 1 {
		t.Fatalf("single trial must be 0 or 1, got %v", p)
	}
}

func TestPossessions(t *testing.T) {
	cases := map[int]int{0: 1, 5: 1, 12: 1, 13: 1, 26: 2, 90: 6, 720: 55}
	for seconds, want := range cases {
		if got := Possessions(seconds, SecondsPerPossession); got != want {
			t.Fatalf("seconds=%d: expected %d possessions, got %d", seconds, want, got)
		}
	}
}

func TestWeight(t *testing.T) {
	prev := 0.0
	for i := 0; i <= 100; i++ {
		lev := float64(i) / 100
		w := Weight(lev)
		if w < SmoothingFloor {
			t.Fatalf("weight below floor for leverage %v: %v", lev, w)
		}
		if i > 0 && w <= prev {
			t.Fatalf("expected increasing weight at leverage %v", lev)
		}
		prev = w
	}
	if got := Weight(0); got != SmoothingFloor {
		t.Fatalf("expected zero leverage weight %v, got %v", SmoothingFloor, got)
	}
}

func TestNewLeverage(t *testing.T) {
	res := NewLeverage(0.6, 0.35)
	if math.Abs(res.Leverage-0.25) > 1e-12 {
		t.Fatalf("unexpected leverage: %v", res.Leverage)
	}
	if math.Abs(res.Weight-0.55) > 1e-12 {
		t.Fatalf("unexpected weight: %v", res.Weight)
	}
	swapped := NewLeverage(0.35, 0.6)
	if swapped.Leverage != res.Leverage {
		t.Fatalf("leverage must be absolute")
	}
}

func TestLeverageOfProbesMakeAndMiss(t *testing.T) {
	p := &fixedProber{values: map[int]float64{3: 0.9, 2: 0.7}}
	res := LeverageOf(p, 2, 30)
	if res.WinProbabilityIfMake != 0.9 || res.WinProbabilityIfMiss != 0.7 {
		t.Fatalf("unexpected probes: %+v", res)
	}
	if len(p.calls) != 2 || p.calls[0] != 3 || p.calls[1] != 2 {
		t.Fatalf("expected probes at margin+1 then margin, got %v", p.calls)
	}
}

func TestPoissonMoments(t *testing.T) {
	rnd := rand.New(rand.NewPCG(5, 6))
	for _, lam := range []float64{1.08, 6.48, 59.4} {
		draws := make([]int, 50000)
		fillPoisson(rnd, lam, draws)
		mean, variance := moments(draws)
		if math.Abs(mean-lam) > 0.05*math.Max(1, math.Sqrt(lam)) {
			t.Fatalf("lambda %v: mean %v too far off", lam, mean)
		}
		if math.Abs(variance-lam)/lam > 0.06 {
			t.Fatalf("lambda %v: variance %v too far off", lam, variance)
		}
		for _, d := range draws {
			if d < 0 {
				t.Fatalf("lambda %v: negative draw %d", lam, d)
			}
		}
	}
	if got := poisson(rnd, 0); got != 0 {
		t.Fatalf("expected zero draw for zero rate, got %d", got)
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod(""); err != nil || m != MethodAggregate {
		t.Fatalf("expected aggregate default, got %q %v", m, err)
	}
	if m, err := ParseMethod(" Possession "); err != nil || m != MethodPossession {
		t.Fatalf("expected possession, got %q %v", m, err)
	}
	if _, err := ParseMethod("vectorized"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

type fixedProber struct {
	values map[int]float64
	calls  []int
}

func (f *fixedProber) WinProbability(margin, _ int) float64 {
	f.calls = append(f.calls, margin)
	return f.values[margin]
}

func moments(draws []int) (float64, float64) {
	var sum float64
	for _, d := range draws {
		sum += float64(d)
	}
	mean := sum / float64(len(draws))
	var sq float64
	for _, d := range draws {
		diff := float64(d) - mean
		sq += diff * diff
	}
	return mean, sq / float64(len(draws)-1)
}
