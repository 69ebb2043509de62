package statsui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ftclutch/internal/analysis"
	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/stats"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

type fakeService struct {
	players   []string
	summaries map[string]model.PlayerSummary
	forgotten []string
}

func (f *fakeService) Players(context.Context) ([]string, error) {
	return f.players, nil
}

func (f *fakeService) Analyze(_ context.Context, player string) (model.PlayerSummary, error) {
	s, ok := f.summaries[player]
	if !ok {
		return model.PlayerSummary{}, analysis.ErrNoData
	}
	return s, nil
}

func (f *fakeService) Forget(player string) {
	f.forgotten = append(f.forgotten, player)
}

func (f *fakeService) Prober() winprob.Prober {
	return flatProber{}
}

type flatProber struct{}

func (flatProber) WinProbability(int, int) float64 { return 0.5 }

func newFake() *fakeService {
	return &fakeService{
		players: []string{"Ben Wallace", "Reggie Miller", "Steve Nash"},
		summaries: map[string]model.PlayerSummary{
			"Steve Nash": {
				Player:                     "Steve Nash",
				Shots:                      2,
				RawPercentage:              50,
				PressureAdjustedPercentage: 60,
				PerPeriod:                  []model.PeriodRate{{Label: "1"}, {Label: "2"}, {Label: "3"}, {Label: "4+", Attempts: 2, Makes: 1, Rate: 0.5}},
				Results: []model.ShotResult{
					{Shot: model.ParsedShot{IsMake: true, Period: 4, SecondsRemaining: 20}, Leverage: model.LeverageResult{Leverage: 0.3}},
					{Shot: model.ParsedShot{IsMake: false, Period: 4, SecondsRemaining: 10}, Leverage: model.LeverageResult{Leverage: 0.4}},
				},
			},
		},
	}
}

// runCmd executes cmd and any batched commands, returning every message.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findReport(t *testing.T, msgs []tea.Msg) reportMsg {
	t.Helper()
	for _, msg := range msgs {
		if r, ok := msg.(reportMsg); ok {
			return r
		}
	}
	t.Fatalf("no report message in %v", msgs)
	return reportMsg{}
}

func TestFilterPlayers(t *testing.T) {
	players := []string{"Steve Nash", "Nenê", "Reggie Miller"}
	if got := filterPlayers(players, "  NASH "); len(got) != 1 || got[0] != "Steve Nash" {
		t.Fatalf("unexpected filter result %v", got)
	}
	if got := filterPlayers(players, "nê"); len(got) != 1 || got[0] != "Nenê" {
		t.Fatalf("unexpected accented match %v", got)
	}
	if got := filterPlayers(players, ""); len(got) != 3 {
		t.Fatalf("empty query should keep everyone, got %v", got)
	}
}

func TestWrapIndex(t *testing.T) {
	cases := []struct{ in, n, want int }{
		{-1, 4, 3},
		{4, 4, 0},
		{2, 4, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := wrapIndex(tc.in, tc.n); got != tc.want {
			t.Fatalf("wrapIndex(%d, %d) = %d, want %d", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestFitLinesAndTruncate(t *testing.T) {
	out := fitLines("ab\ncd\nef", 4, 2)
	if out != "ab  \ncd  " {
		t.Fatalf("unexpected fit %q", out)
	}
	if got := truncateLine("Player: Giannis Antetokounmpo", 12); got != "Player: G..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("short", 0); got != "short" {
		t.Fatalf("zero width must not truncate, got %q", got)
	}
}

func TestSelectionIgnoredWhileLoading(t *testing.T) {
	m := NewModel(newFake(), nil, Options{})
	first := m.selectPlayer("Steve Nash")
	if first == nil || !m.loading {
		t.Fatalf("expected analysis to start")
	}
	if second := m.selectPlayer("Reggie Miller"); second != nil {
		t.Fatalf("selection during loading must be ignored")
	}
	if m.player != "Steve Nash" {
		t.Fatalf("player changed while loading: %q", m.player)
	}

	report := findReport(t, runCmd(first))
	m.Update(report)
	if m.loading || !m.hasData {
		t.Fatalf("expected loaded data, loading=%v hasData=%v", m.loading, m.hasData)
	}
	overview := m.renderOverview(100)
	if !strings.Contains(overview, "Pressure-Adjusted FT%") || !strings.Contains(overview, "60.0%") {
		t.Fatalf("unexpected overview:\n%s", overview)
	}
	if rows := m.shotTable.Rows(); len(rows) != 2 || rows[0][6] != "0.400" {
		t.Fatalf("expected shots sorted by leverage, got %v", rows)
	}
}

func TestNoDataNotice(t *testing.T) {
	m := NewModel(newFake(), nil, Options{})
	cmd := m.selectPlayer("Ben Wallace")
	m.Update(findReport(t, runCmd(cmd)))
	if m.hasData {
		t.Fatalf("expected no data")
	}
	if m.errMsg != "" {
		t.Fatalf("no data must not surface as an error, got %q", m.errMsg)
	}
	if !strings.Contains(m.renderOverview(80), stats.NoDataNotice) {
		t.Fatalf("expected no-data notice")
	}
}

func TestPickerFlow(t *testing.T) {
	fake := newFake()
	m := NewModel(fake, nil, Options{})
	if !m.pickerMode {
		t.Fatalf("picker should open without an initial player")
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(playersMsg{players: fake.players})

	for _, r := range "nash" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.filtered) != 1 || m.filtered[0] != "Steve Nash" {
		t.Fatalf("unexpected filtered players %v", m.filtered)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected analysis command")
	}
	if m.pickerMode || !m.loading || m.player != "Steve Nash" {
		t.Fatalf("unexpected state after enter: picker=%v loading=%v player=%q", m.pickerMode, m.loading, m.player)
	}
	m.Update(findReport(t, runCmd(cmd)))

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if len(fake.forgotten) != 1 || fake.forgotten[0] != "Steve Nash" {
		t.Fatalf("reload should forget the memoized summary, got %v", fake.forgotten)
	}
	if view := m.View(); !strings.Contains(view, "Steve Nash") {
		t.Fatalf("expected player in header")
	}
}

func TestTabsWrap(t *testing.T) {
	m := NewModel(newFake(), nil, Options{Player: "Steve Nash"})
	m.moveTab(-1)
	if m.activeTab != tabHistory {
		t.Fatalf("expected wrap to history tab, got %d", m.activeTab)
	}
	m.moveTab(2)
	if m.activeTab != tabShots {
		t.Fatalf("expected shots tab, got %d", m.activeTab)
	}
}

func TestLeverageTab(t *testing.T) {
	m := NewModel(newFake(), nil, Options{Margins: []int{0}, Seconds: []int{60, 30}})
	m.curvesLoading = true
	if got := m.renderLeverage(80); !strings.Contains(got, "Simulating") {
		t.Fatalf("expected loading text before curves arrive, got %q", got)
	}
	msgs := runCmd(m.loadCurves())
	m.Update(msgs[0])
	out := m.renderLeverage(80)
	if !strings.Contains(out, "1:00") || !strings.Contains(out, "margin +0") {
		t.Fatalf("unexpected leverage tab:\n%s", out)
	}
}
