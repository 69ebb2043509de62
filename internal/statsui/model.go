// Package statsui provides the Bubble Tea player browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/ftclutch/internal/analysis"
	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/stats"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

const (
	tabOverview = iota
	tabShots
	tabLeverage
	tabHistory
)

const (
	plotHeight          = 12
	defaultHistoryLimit = 20
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	deltaUpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	deltaDownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Service is the query layer the browser drives.
type Service interface {
	Players(ctx context.Context) ([]string, error)
	Analyze(ctx context.Context, player string) (model.PlayerSummary, error)
	Forget(player string)
	Prober() winprob.Prober
}

// Options configures the browser.
type Options struct {
	Player       string
	Margins      []int
	Seconds      []int
	HistoryLimit int
}

type playersMsg struct {
	players []string
	err     error
}

type reportMsg struct {
	player string
	report stats.Report
	err    error
}

type curvesMsg struct {
	series []stats.Series
}

// Model implements the Bubble Tea player browser.
type Model struct {
	svc     Service
	history stats.History
	opts    Options

	players  []string
	filtered []string
	player   string
	report   stats.Report
	hasData  bool
	curves   []stats.Series
	errMsg   string

	loading       bool
	curvesLoading bool
	spinner       spinner.Model

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	shotTable  table.Model
	pickerMode bool
	picker     textinput.Model
	pickList   table.Model

	width  int
	height int
}

// NewModel constructs the browser. history may be nil.
func NewModel(svc Service, history stats.History, opts Options) *Model {
	if len(opts.Margins) == 0 {
		opts.Margins = []int{-3, -1, 0, 1, 3}
	}
	if len(opts.Seconds) == 0 {
		opts.Seconds = winprob.SecondsGrid(300, 10)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	m := &Model{
		svc:     svc,
		history: history,
		opts:    opts,
		tabs:    []string{"Overview", "Shots", "Leverage", "History"},
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.picker = newInput("Player: ")
	m.picker.Placeholder = "type to filter"
	m.shotTable = newTable(shotColumns(), nil)
	m.pickList = newTable([]table.Column{{Title: "Player", Width: 30}}, nil)
	m.pickerMode = opts.Player == ""
	if m.pickerMode {
		m.picker.Focus()
		m.pickList.Focus()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadPlayers(), m.loadCurves(), m.spinner.Tick}
	m.curvesLoading = true
	if m.opts.Player != "" {
		cmds = append(cmds, m.selectPlayer(m.opts.Player))
	}
	if m.pickerMode {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case spinner.TickMsg:
		if !m.loading && !m.curvesLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case playersMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.players = msg.players
		m.applyPickerFilter()
		return m, nil
	case curvesMsg:
		m.curvesLoading = false
		m.curves = msg.series
		m.renderTabContents()
		return m, nil
	case reportMsg:
		return m.applyReport(msg), nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.pickerMode {
			return m.updatePicker(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "/", "p":
		return m.openPicker()
	case "r":
		if m.player == "" || m.loading {
			return m, nil
		}
		m.svc.Forget(m.player)
		return m, m.selectPlayer(m.player)
	case "g", "home":
		if m.activeTab == tabShots {
			m.shotTable.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabShots {
			m.shotTable.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	}
	var cmd tea.Cmd
	if m.activeTab == tabShots {
		m.shotTable, cmd = m.shotTable.Update(msg)
		return m, cmd
	}
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.player == "" {
			return m, nil
		}
		m.closePicker()
		return m, nil
	case tea.KeyEnter:
		row := m.pickList.SelectedRow()
		if len(row) == 0 {
			return m, nil
		}
		cmd := m.selectPlayer(row[0])
		if cmd == nil {
			return m, nil
		}
		m.closePicker()
		return m, cmd
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.pickList, cmd = m.pickList.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	prev := m.picker.Value()
	m.picker, cmd = m.picker.Update(msg)
	if m.picker.Value() != prev {
		m.applyPickerFilter()
	}
	return m, cmd
}

// selectPlayer starts an analysis. Selections made while one is running are
// ignored and return nil.
func (m *Model) selectPlayer(player string) tea.Cmd {
	if m.loading || player == "" {
		return nil
	}
	m.loading = true
	m.errMsg = ""
	m.player = player
	svc, hist := m.svc, m.history
	cfg := stats.ReportConfig{Player: player, HistoryLimit: m.opts.HistoryLimit}
	load := func() tea.Msg {
		report, err := stats.BuildReport(context.Background(), svc, hist, cfg, analysis.ErrNoData)
		return reportMsg{player: player, report: report, err: err}
	}
	return tea.Batch(load, m.spinner.Tick)
}

func (m *Model) applyReport(msg reportMsg) *Model {
	m.loading = false
	if msg.player != m.player {
		return m
	}
	if msg.err != nil {
		m.errMsg = msg.err.Error()
		m.hasData = false
		m.report = stats.Report{}
		m.shotTable.SetRows(nil)
		m.renderTabContents()
		return m
	}
	m.report = msg.report
	m.hasData = !msg.report.NoData
	m.shotTable.SetRows(shotRows(msg.report.Summary.Results))
	m.shotTable.GotoTop()
	m.renderTabContents()
	return m
}

func (m *Model) loadPlayers() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		players, err := svc.Players(context.Background())
		return playersMsg{players: players, err: err}
	}
}

func (m *Model) loadCurves() tea.Cmd {
	prober, margins, seconds := m.svc.Prober(), m.opts.Margins, m.opts.Seconds
	return func() tea.Msg {
		return curvesMsg{series: stats.LeverageSeries(prober, margins, seconds)}
	}
}

func (m *Model) openPicker() (tea.Model, tea.Cmd) {
	m.pickerMode = true
	m.picker.SetValue("")
	m.applyPickerFilter()
	m.pickList.Focus()
	return m, m.picker.Focus()
}

func (m *Model) closePicker() {
	m.pickerMode = false
	m.picker.Blur()
	m.pickList.Blur()
}

func (m *Model) applyPickerFilter() {
	m.filtered = filterPlayers(m.players, m.picker.Value())
	rows := make([]table.Row, len(m.filtered))
	for i, p := range m.filtered {
		rows[i] = table.Row{p}
	}
	m.pickList.SetRows(rows)
	m.pickList.GotoTop()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.pickerMode {
		return fitLines(m.renderPicker(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.shotTable.SetWidth(m.width)
	m.shotTable.SetHeight(max(1, bodyHeight-1))
	inner := modalInnerWidth(m.width)
	m.picker.Width = max(10, inner-lipgloss.Width(m.picker.Prompt))
	m.pickList.SetColumns([]table.Column{{Title: "Player", Width: inner}})
	m.pickList.SetWidth(inner)
	m.pickList.SetHeight(max(3, m.height/2))
}

func (m *Model) moveTab(delta int) {
	m.activeTab = wrapIndex(m.activeTab+delta, len(m.tabs))
	if m.activeTab == tabShots {
		m.shotTable.Focus()
	} else {
		m.shotTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	status := "No player selected"
	if m.player != "" {
		status = "Player: " + m.player
	}
	if m.loading {
		status = fmt.Sprintf("%s %s  analysing...", m.spinner.View(), status)
	}
	return tabs + "\n" + padLines(headerStyle.Render(truncateLine(status, m.width)), m.width)
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Player: /  Reload: r  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabShots && m.hasData {
		return fitLines(tableMutedStyle.Render(m.shotTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderPicker() string {
	body := []string{
		cardValueStyle.Render("Select Player"),
		m.picker.View(),
		tableMutedStyle.Render(m.pickList.View()),
		headerStyle.Render(fmt.Sprintf("%d of %d players  enter: analyse  esc: close", len(m.filtered), len(m.players))),
	}
	if m.errMsg != "" {
		body = append(body, errorStyle.Render(m.errMsg))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabShots].SetContent(m.emptyNotice())
	m.viewports[tabLeverage].SetContent(m.renderLeverage(width))
	m.viewports[tabHistory].SetContent(renderHistory(m.report.History))
}

func (m *Model) emptyNotice() string {
	switch {
	case m.player == "":
		return "Press / to choose a player."
	case m.loading:
		return "Loading..."
	case m.errMsg != "":
		return "Failed to load player."
	default:
		return noticeStyle.Render(stats.NoDataNotice)
	}
}

func (m *Model) renderOverview(width int) string {
	if !m.hasData {
		return m.emptyNotice()
	}
	s := m.report.Summary
	cards := renderSummaryCards(s, width)
	var buf bytes.Buffer
	if err := stats.RenderPeriodBars(&buf, s.PerPeriod, min(40, max(10, width/3))); err != nil {
		return fmt.Sprintf("Failed to render periods: %v", err)
	}
	note := headerStyle.Render(fmt.Sprintf("%d free throws evaluated, %d dropped", s.Shots, s.Dropped))
	return strings.TrimRight(cards+"\n\n"+buf.String()+note, "\n")
}

func renderSummaryCards(s model.PlayerSummary, width int) string {
	cards := []string{
		metricCard("Raw FT%", stats.FormatPercent(s.RawPercentage), ""),
		metricCard("Pressure-Adjusted FT%", stats.FormatPercent(s.PressureAdjustedPercentage), deltaText(s.PressureDelta())),
		metricCard("True Clutch FT%", stats.FormatPercent(s.TrueClutchPercentage), fmt.Sprintf("%d attempts", s.ClutchShots)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func deltaText(delta float64) string {
	text := stats.FormatDelta(delta)
	if delta < 0 {
		return deltaDownStyle.Render(text)
	}
	return deltaUpStyle.Render(text)
}

func metricCard(label, value, sub string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	if sub != "" {
		content += "\n" + sub
	}
	return cardStyle.Render(content)
}

func (m *Model) renderLeverage(width int) string {
	if m.curvesLoading {
		return "Simulating leverage curves..."
	}
	if len(m.curves) == 0 || len(m.opts.Seconds) == 0 {
		return "No leverage curves."
	}
	var buf bytes.Buffer
	err := stats.PlotSeries(&buf, m.curves, stats.PlotOptions{
		Title:      "Free-throw leverage by time remaining",
		Width:      stats.PlotWidthFor(width),
		Height:     plotHeight,
		Min:        0,
		Max:        1,
		XStart:     stats.FormatClock(m.opts.Seconds[0]),
		XEnd:       stats.FormatClock(m.opts.Seconds[len(m.opts.Seconds)-1]),
		ForceColor: true,
	})
	if err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if m.hasData {
		top := stats.TopShotsByLeverage(m.report.Summary.Results, 1)
		if len(top) == 1 {
			r := top[0]
			out += "\n" + headerStyle.Render(fmt.Sprintf("Biggest moment: period %d, %s left, margin %+d, leverage %.3f",
				r.Shot.Period, stats.FormatClock(r.Shot.SecondsRemaining), r.Shot.MarginAtShot, r.Leverage.Leverage))
		}
	}
	return out
}

func renderHistory(snaps []model.Snapshot) string {
	var buf bytes.Buffer
	if err := stats.RenderHistory(&buf, snaps); err != nil {
		return fmt.Sprintf("Failed to render history: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func shotColumns() []table.Column {
	widths := []int{4, 6, 7, 7, 8, 8, 9}
	cols := make([]table.Column, len(stats.ShotHeaders))
	for i, title := range stats.ShotHeaders {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

func shotRows(results []model.ShotResult) []table.Row {
	raw := stats.ShotRows(stats.TopShotsByLeverage(results, 0))
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		rows[i] = table.Row(r)
	}
	return rows
}

func newTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(5),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// filterPlayers keeps names containing query, ignoring case.
func filterPlayers(players []string, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]string(nil), players...)
	}
	out := make([]string, 0, len(players))
	for _, p := range players {
		if strings.Contains(strings.ToLower(p), query) {
			out = append(out, p)
		}
	}
	return out
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	// 2 border + 4 padding
	return max(10, modalWidth(width)-6)
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
