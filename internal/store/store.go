// Package store handles SQLite persistence of computed summaries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/ftclutch/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for snapshot history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			player TEXT NOT NULL,
			computed_at TEXT NOT NULL,
			trials INTEGER NOT NULL,
			method TEXT NOT NULL,
			shots INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			clutch_shots INTEGER NOT NULL,
			raw_pct REAL NOT NULL,
			pressure_pct REAL NOT NULL,
			clutch_pct REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS summary_periods (
			summary_id INTEGER NOT NULL,
			label TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			makes INTEGER NOT NULL,
			rate REAL NOT NULL,
			PRIMARY KEY (summary_id, label)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_player ON summaries(player, computed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot stores a summary snapshot and its period buckets.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO summaries (run_id, player, computed_at, trials, method, shots, dropped, clutch_shots, raw_pct, pressure_pct, clutch_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID,
		snap.Player,
		snap.ComputedAt.UTC().Format(time.RFC3339Nano),
		snap.Trials,
		snap.Method,
		snap.Shots,
		snap.Dropped,
		snap.ClutchShots,
		snap.Raw,
		snap.Pressure,
		snap.Clutch,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(snap.PerPeriod) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO summary_periods (summary_id, label, attempts, makes, rate)
			 VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, p := range snap.PerPeriod {
			if _, err = stmt.ExecContext(ctx, id, p.Label, p.Attempts, p.Makes, p.Rate); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSnapshots returns stored snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, filter model.HistoryFilter) ([]model.Snapshot, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Player != "" {
		clauses = append(clauses, "player = ?")
		args = append(args, filter.Player)
	}
	if filter.Since != nil {
		clauses = append(clauses, "computed_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, run_id, player, computed_at, trials, method, shots, dropped, clutch_shots, raw_pct, pressure_pct, clutch_pct
		FROM summaries
		WHERE %s
		ORDER BY computed_at DESC, id DESC`, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var computedAt string
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.Player, &computedAt, &snap.Trials, &snap.Method,
			&snap.Shots, &snap.Dropped, &snap.ClutchShots, &snap.Raw, &snap.Pressure, &snap.Clutch); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, computedAt)
		if err != nil {
			return nil, err
		}
		snap.ComputedAt = parsed
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(snaps))
	for i, snap := range snaps {
		ids[i] = snap.ID
	}
	periods, err := s.listPeriods(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range snaps {
		snaps[i].PerPeriod = periods[snaps[i].ID]
	}
	return snaps, nil
}

func (s *Store) listPeriods(ctx context.Context, summaryIDs []int64) (map[int64][]model.PeriodRate, error) {
	placeholders := make([]string, len(summaryIDs))
	args := make([]any, len(summaryIDs))
	for i, id := range summaryIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT summary_id, label, attempts, makes, rate
		FROM summary_periods
		WHERE summary_id IN (%s)
		ORDER BY summary_id, label`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64][]model.PeriodRate{}
	for rows.Next() {
		var summaryID int64
		var p model.PeriodRate
		if err := rows.Scan(&summaryID, &p.Label, &p.Attempts, &p.Makes, &p.Rate); err != nil {
			return nil, err
		}
		result[summaryID] = append(result[summaryID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Players returns the distinct players with stored snapshots.
func (s *Store) Players(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT player FROM summaries ORDER BY player`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var players []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}
