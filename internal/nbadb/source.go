// Package nbadb reads players and free-throw events from the NBA SQLite dataset.
package nbadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/ftclutch/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrMissing is returned when the dataset file does not exist.
var ErrMissing = errors.New("dataset not found (run: ftclutch fetch)")

// nullMargin is how an absent score margin is presented to the parser.
const nullMargin = "NONE"

const playersQuery = `SELECT DISTINCT full_name FROM player ORDER BY full_name`

const searchQuery = `SELECT DISTINCT full_name FROM player
	WHERE full_name LIKE ? ESCAPE '\'
	ORDER BY full_name`

const freeThrowsQuery = `SELECT pbp.period, pbp.scoremargin, pbp.pctimestring, pbp.homedescription, pbp.visitordescription
	FROM play_by_play pbp
	JOIN player p ON pbp.player1_id = p.id
	WHERE p.full_name = ?
	AND (pbp.homedescription LIKE '%Free Throw%' OR pbp.visitordescription LIKE '%Free Throw%')`

// Source serves the player directory and per-player free throws.
type Source struct {
	db   *sql.DB
	path string
}

// Open opens the dataset read-only.
func Open(path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dsn := (&url.URL{Scheme: "file", OmitHost: true, Path: abs, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on ping failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	return &Source{db: db, path: path}, nil
}

// Path returns the dataset file path.
func (s *Source) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Players returns every distinct player name in alphabetical order.
func (s *Source) Players(ctx context.Context) ([]string, error) {
	return s.names(ctx, playersQuery)
}

// SearchPlayers returns player names containing query, case-insensitively.
func (s *Source) SearchPlayers(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Players(ctx)
	}
	return s.names(ctx, searchQuery, "%"+escapeLike(query)+"%")
}

func (s *Source) names(ctx context.Context, query string, args ...any) ([]string, error) {
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

	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !name.Valid || name.String == "" {
			continue
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// FreeThrows returns the free-throw events credited to player.
func (s *Source) FreeThrows(ctx context.Context, player string) ([]model.ShotEvent, error) {
	rows, err := s.db.QueryContext(ctx, freeThrowsQuery, player)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var events []model.ShotEvent
	for rows.Next() {
		var (
			period, margin, clock sql.NullString
			homeDesc, visitorDesc sql.NullString
		)
		if err := rows.Scan(&period, &margin, &clock, &homeDesc, &visitorDesc); err != nil {
			return nil, err
		}
		ev := model.ShotEvent{
			Period:             parsePeriod(period),
			ScoreMargin:        nullMargin,
			TimeRemaining:      clock.String,
			HomeDescription:    homeDesc.String,
			VisitorDescription: visitorDesc.String,
		}
		if margin.Valid {
			ev.ScoreMargin = margin.String
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// parsePeriod returns 0 for values that are not integers; the shot parser
// drops those events.
func parsePeriod(v sql.NullString) int {
	if !v.Valid {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.String))
	if err != nil {
		return 0
	}
	return n
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
