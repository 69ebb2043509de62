// Package shots turns raw free-throw events into player summaries.
package shots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/ftclutch/internal/model"
)

// Fields reported by ParseError.
const (
	FieldPeriod = "period"
	FieldMargin = "margin"
	FieldTime   = "time"
)

const missMarker = "MISS"

// Score margin values that stand for a tied or unknown score.
var tieMarkers = []string{"TIE", "NONE", "NAN"}

var (
	// ErrTimeFormat is returned for clock strings that are not MM:SS.
	ErrTimeFormat = errors.New("expected MM:SS")
	// ErrNegative is returned for negative clock components.
	ErrNegative = errors.New("negative value")
	// ErrPeriod is returned for periods below 1.
	ErrPeriod = errors.New("period must be >= 1")
)

// ParseError describes why a ShotEvent could not be parsed.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseShot validates every field of ev. It either fully succeeds or returns
// a *ParseError.
func ParseShot(ev model.ShotEvent) (model.ParsedShot, error) {
	if ev.Period < 1 {
		return model.ParsedShot{}, &ParseError{Field: FieldPeriod, Value: strconv.Itoa(ev.Period), Err: ErrPeriod}
	}
	margin, err := ParseMargin(ev.ScoreMargin)
	if err != nil {
		return model.ParsedShot{}, err
	}
	seconds, err := ParseClock(ev.TimeRemaining)
	if err != nil {
		return model.ParsedShot{}, err
	}
	return model.ParsedShot{
		IsMake:           IsMake(ev.HomeDescription, ev.VisitorDescription),
		MarginAtShot:     margin,
		SecondsRemaining: seconds,
		Period:           ev.Period,
	}, nil
}

// IsMake reports whether neither description carries the miss marker.
func IsMake(home, visitor string) bool {
	desc := strings.ToUpper(home + " " + visitor)
	return !strings.Contains(desc, missMarker)
}

// ParseMargin reads a score margin, mapping tie/unknown markers to 0.
func ParseMargin(raw string) (int, error) {
	upper := strings.ToUpper(raw)
	for _, marker := range tieMarkers {
		if strings.Contains(upper, marker) {
			return 0, nil
		}
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ParseError{Field: FieldMargin, Value: raw, Err: err}
	}
	return v, nil
}

// ParseClock converts an "MM:SS" period clock into seconds.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, &ParseError{Field: FieldTime, Value: raw, Err: ErrTimeFormat}
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, &ParseError{Field: FieldTime, Value: raw, Err: err}
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &ParseError{Field: FieldTime, Value: raw, Err: err}
	}
	if minutes < 0 || seconds < 0 {
		return 0, &ParseError{Field: FieldTime, Value: raw, Err: ErrNegative}
	}
	return minutes*60 + seconds, nil
}
