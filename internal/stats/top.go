package stats

import (
	"sort"

	"github.com/verte-zerg/ftclutch/internal/model"
)

// TopShotsByLeverage returns up to n results ordered by leverage, highest
// first. n <= 0 returns every result. Ties keep source order.
func TopShotsByLeverage(results []model.ShotResult, n int) []model.ShotResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]model.ShotResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Leverage.Leverage > out[j].Leverage.Leverage
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ClutchShots returns the results whose leverage exceeds threshold.
func ClutchShots(results []model.ShotResult, threshold float64) []model.ShotResult {
	var out []model.ShotResult
	for _, r := range results {
		if r.Leverage.Leverage > threshold {
			out = append(out, r)
		}
	}
	return out
}
