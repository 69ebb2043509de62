package shots

import (
	"errors"
	"strconv"
	"testing"

	"github.com/verte-zerg/ftclutch/internal/model"
)

func TestParseShotExample(t *testing.T) {
	ev := model.ShotEvent{
		Period:          4,
		ScoreMargin:     "2",
		TimeRemaining:   "1:30",
		HomeDescription: "MISS Jordan Free Throw",
	}
	shot, err := ParseShot(ev)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if shot.IsMake {
		t.Fatalf("expected a miss")
	}
	if shot.MarginAtShot != 2 {
		t.Fatalf("expected margin 2, got %d", shot.MarginAtShot)
	}
	if shot.SecondsRemaining != 90 {
		t.Fatalf("expected 90 seconds, got %d", shot.SecondsRemaining)
	}
	if shot.Period != 4 {
		t.Fatalf("expected period 4, got %d", shot.Period)
	}
}

func TestIsMake(t *testing.T) {
	cases := []struct {
		home    string
		visitor string
		want    bool
	}{
		{home: "Jordan Free Throw 1 of 2 (20 PTS)", want: true},
		{visitor: "miss James Free Throw 2 of 2", want: false},
		{home: "", visitor: "", want: true},
		{home: "Bird Free Throw 1 of 1", visitor: "MISS Bird Free Throw", want: false},
	}
	for _, tc := range cases {
		if got := IsMake(tc.home, tc.visitor); got != tc.want {
			t.Fatalf("IsMake(%q, %q) = %v, want %v", tc.home, tc.visitor, got, tc.want)
		}
	}
}

func TestParseMargin(t *testing.T) {
	cases := map[string]int{
		"TIE":  0,
		"tie":  0,
		"None": 0,
		"nan":  0,
		"2":    2,
		"-7":   -7,
		"+3":   3,
		" 4 ":  4,
	}
	for raw, want := range cases {
		got, err := ParseMargin(raw)
		if err != nil {
			t.Fatalf("ParseMargin(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseMargin(%q) = %d, want %d", raw, got, want)
		}
	}
	for _, raw := range []string{"", "abc", "1.5"} {
		_, err := ParseMargin(raw)
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Field != FieldMargin {
			t.Fatalf("ParseMargin(%q): expected margin parse error, got %v", raw, err)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{
		"1:30":  90,
		"12:00": 720,
		"0:00":  0,
		"0:07":  7,
	}
	for raw, want := range cases {
		got, err := ParseClock(raw)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %d, want %d", raw, got, want)
		}
	}
	bad := []struct {
		raw string
		err error
	}{
		{raw: "90", err: ErrTimeFormat},
		{raw: "1:30:00", err: ErrTimeFormat},
		{raw: "-1:30", err: ErrNegative},
		{raw: "a:30", err: strconv.ErrSyntax},
		{raw: "", err: ErrTimeFormat},
	}
	for _, tc := range bad {
		_, err := ParseClock(tc.raw)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ParseClock(%q): expected %v, got %v", tc.raw, tc.err, err)
		}
	}
}

func TestParseShotRejectsBadPeriod(t *testing.T) {
	_, err := ParseShot(model.ShotEvent{Period: 0, ScoreMargin: "1", TimeRemaining: "1:00"})
	if !errors.Is(err, ErrPeriod) {
		t.Fatalf("expected period error, got %v", err)
	}
}

func TestPeriodLabel(t *testing.T) {
	cases := map[int]string{1: "1", 2: "2", 3: "3", 4: "4+", 5: "4+", 9: "4+"}
	for period, want := range cases {
		if got := PeriodLabel(period); got != want {
			t.Fatalf("PeriodLabel(%d) = %q, want %q", period, got, want)
		}
	}
}
