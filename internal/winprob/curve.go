package winprob

// Curve returns the win probability at margin for each entry of seconds.
func Curve(p Prober, margin int, seconds []int) []float64 {
	out := make([]float64, len(seconds))
	for i, s := range seconds {
		out[i] = p.WinProbability(margin, s)
	}
	return out
}

// LeverageCurve returns free-throw leverage at margin for each entry of seconds.
func LeverageCurve(p Prober, margin int, seconds []int) []float64 {
	out := make([]float64, len(seconds))
	for i, s := range seconds {
		out[i] = LeverageOf(p, margin, s).Leverage
	}
	return out
}

// SecondsGrid counts down from start in decrements of step, stopping before 0.
func SecondsGrid(start, step int) []int {
	if start <= 0 || step <= 0 {
		return nil
	}
	out := make([]int, 0, start/step)
	for s := start; s > 0; s -= step {
		out = append(out, s)
	}
	return out
}
