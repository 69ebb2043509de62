package stats

import (
	"testing"

	"github.com/verte-zerg/ftclutch/internal/model"
)

func result(period int, lev float64, made bool) model.ShotResult {
	return model.ShotResult{
		Shot:     model.ParsedShot{IsMake: made, Period: period},
		Leverage: model.LeverageResult{Leverage: lev},
	}
}

func TestTopShotsByLeverage(t *testing.T) {
	results := []model.ShotResult{
		result(1, 0.01, true),
		result(4, 0.40, false),
		result(2, 0.10, true),
		result(3, 0.40, true),
	}
	top := TopShotsByLeverage(results, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(top))
	}
	if top[0].Shot.Period != 4 || top[1].Shot.Period != 3 {
		t.Fatalf("unexpected order: %+v", top)
	}
	if results[0].Shot.Period != 1 {
		t.Fatalf("input must not be reordered")
	}
	if all := TopShotsByLeverage(results, 0); len(all) != 4 {
		t.Fatalf("expected every shot for n=0, got %d", len(all))
	}
}

func TestClutchShots(t *testing.T) {
	results := []model.ShotResult{result(1, 0.15, true), result(4, 0.16, false)}
	clutch := ClutchShots(results, 0.15)
	if len(clutch) != 1 || clutch[0].Shot.Period != 4 {
		t.Fatalf("threshold must be strict, got %+v", clutch)
	}
}
