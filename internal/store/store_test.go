package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/ftclutch/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "ftclutch.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func snapshot(player string, at time.Time, raw float64) model.Snapshot {
	return model.Snapshot{
		RunID:       "run-" + player,
		Player:      player,
		ComputedAt:  at,
		Trials:      10000,
		Method:      "aggregate",
		Shots:       4,
		Dropped:     1,
		ClutchShots: 2,
		Raw:         raw,
		Pressure:    raw + 1,
		Clutch:      50,
		PerPeriod: []model.PeriodRate{
			{Label: "1", Attempts: 2, Makes: 1, Rate: 0.5},
			{Label: "4+", Attempts: 2, Makes: 1, Rate: 0.5},
		},
	}
}

func TestSaveAndListSnapshots(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := st.SaveSnapshot(ctx, snapshot("Steve Nash", base, 90)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.SaveSnapshot(ctx, snapshot("Steve Nash", base.Add(time.Hour), 91)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.SaveSnapshot(ctx, snapshot("Reggie Miller", base, 88)); err != nil {
		t.Fatalf("save: %v", err)
	}

	snaps, err := st.ListSnapshots(ctx, model.HistoryFilter{Player: "Steve Nash"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Raw != 91 || !snaps[0].ComputedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected newest first, got %+v", snaps[0])
	}
	if len(snaps[0].PerPeriod) != 2 || snaps[0].PerPeriod[1].Label != "4+" {
		t.Fatalf("unexpected periods: %+v", snaps[0].PerPeriod)
	}
	if snaps[0].RunID != "run-Steve Nash" || snaps[0].Method != "aggregate" {
		t.Fatalf("unexpected metadata: %+v", snaps[0])
	}
}

func TestListSnapshotsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := st.SaveSnapshot(ctx, snapshot("Steve Nash", base.Add(time.Duration(i)*time.Hour), float64(i))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	since := base.Add(90 * time.Minute)
	snaps, err := st.ListSnapshots(ctx, model.HistoryFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Raw != 2 {
		t.Fatalf("expected only the latest snapshot, got %+v", snaps)
	}

	snaps, err = st.ListSnapshots(ctx, model.HistoryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
}

func TestListSnapshotsEmpty(t *testing.T) {
	st := openTestStore(t)
	snaps, err := st.ListSnapshots(context.Background(), model.HistoryFilter{Player: "Nobody"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(snaps))
	}
}

func TestSnapshotWithoutPeriods(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	snap := snapshot("Ben Wallace", time.Now(), 40)
	snap.PerPeriod = nil
	if _, err := st.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	players, err := st.Players(ctx)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 1 || players[0] != "Ben Wallace" {
		t.Fatalf("unexpected players: %v", players)
	}
}
