// Package statsui provides the Bubble Tea progress interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/stats"
)

const (
	tabOverview = iota
	tabTricky
	tabLeaderboard
)

const (
	plotHeight = 10
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
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	upStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	downStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// CloseMsg is emitted instead of quitting when the model is embedded.
type CloseMsg struct{}

// Config configures the progress UI.
type Config struct {
	Profile     model.Profile
	CurveWindow int
	TopTables   int
	Metric      stats.Metric
	// Embedded makes q/esc emit CloseMsg rather than tea.Quit.
	Embedded bool
}

// Model implements the Bubble Tea progress UI.
type Model struct {
	agg *stats.Aggregator
	cfg Config

	overview stats.Overview
	trend    []stats.TrendPoint
	ranks    []stats.TableRank
	board    []stats.LeaderboardEntry
	errMsg   string

	tabs        []string
	activeTab   int
	viewport    viewport.Model
	trickyTable table.Model
	boardTable  table.Model

	width  int
	height int
}

// NewModel constructs a progress UI model.
func NewModel(agg *stats.Aggregator, cfg Config) *Model {
	if cfg.Metric == "" {
		cfg.Metric = stats.MetricAccuracy
	}
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 1
	}
	m := &Model{
		agg:  agg,
		cfg:  cfg,
		tabs: []string{"Overview", "Tricky Tables", "Leaderboard"},
	}
	m.viewport = viewport.New(0, 0)
	m.trickyTable = newTable(trickyColumns(), nil)
	m.boardTable = newTable(boardColumns(cfg.Metric), nil)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.updateOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "esc":
			if m.cfg.Embedded {
				return m, func() tea.Msg { return CloseMsg{} }
			}
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.updateOverview()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.updateOverview()
			return m, nil
		case "m":
			m.cfg.Metric = nextMetric(m.cfg.Metric)
			m.refreshBoard()
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabTricky:
			m.trickyTable, cmd = m.trickyTable.Update(msg)
		case tabLeaderboard:
			m.boardTable, cmd = m.boardTable.Update(msg)
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderHelp(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) refresh() {
	ctx := context.Background()
	id := m.cfg.Profile.ID
	m.overview = m.agg.Overview(ctx, id)
	m.trend = m.agg.Trend(ctx, id)
	m.ranks = m.agg.TableDifficulty(ctx, id)
	if m.cfg.TopTables > 0 && len(m.ranks) > m.cfg.TopTables {
		m.ranks = m.ranks[:m.cfg.TopTables]
	}
	m.trickyTable.SetRows(trickyRows(m.ranks))
	m.refreshBoard()
	m.updateOverview()
}

func (m *Model) refreshBoard() {
	board, err := m.agg.Leaderboard(context.Background(), m.cfg.Metric)
	if err != nil {
		m.errMsg = err.Error()
		board = nil
	} else {
		m.errMsg = ""
	}
	m.board = board
	m.boardTable.SetRows(nil)
	m.boardTable.SetColumns(boardColumns(m.cfg.Metric))
	m.boardTable.SetRows(boardRows(board, m.cfg.Metric, m.cfg.Profile.ID))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	for _, t := range []*table.Model{&m.trickyTable, &m.boardTable} {
		t.SetWidth(m.width)
		t.SetHeight(maxInt(1, bodyHeight-1))
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	m.trickyTable.Blur()
	m.boardTable.Blur()
	switch m.activeTab {
	case tabTricky:
		m.trickyTable.Focus()
	case tabLeaderboard:
		m.boardTable.Focus()
	}
}

func (m *Model) gotoEdge(top bool) {
	switch m.activeTab {
	case tabTricky:
		if top {
			m.trickyTable.GotoTop()
		} else {
			m.trickyTable.GotoBottom()
		}
	case tabLeaderboard:
		if top {
			m.boardTable.GotoTop()
		} else {
			m.boardTable.GotoBottom()
		}
	default:
		if top {
			m.viewport.GotoTop()
		} else {
			m.viewport.GotoBottom()
		}
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
	name := m.cfg.Profile.DisplayName
	if name == "" {
		name = "unknown player"
	}
	summary := fmt.Sprintf("Player: %s  coins=%d  window=%d  metric=%s", name, m.cfg.Profile.Coins, m.cfg.CurveWindow, m.cfg.Metric)
	return tabs + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down  Window: -/=  Refresh: r  Back: q"
	if m.activeTab == tabLeaderboard {
		help = "Nav: left/right  Scroll: up/down  Metric: m  Refresh: r  Back: q"
	}
	if m.errMsg != "" {
		help += "  " + downStyle.Render(m.errMsg)
	}
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabTricky:
		if len(m.ranks) == 0 {
			return "No tricky tables yet. Every answer so far was right!"
		}
		return tableMutedStyle.Render(m.trickyTable.View())
	case tabLeaderboard:
		if len(m.board) == 0 {
			return "No players with tests yet."
		}
		return tableMutedStyle.Render(m.boardTable.View())
	default:
		return m.viewport.View()
	}
}

func (m *Model) updateOverview() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(renderOverview(m.overview, m.trend, m.cfg.CurveWindow, width))
}

func renderOverview(ov stats.Overview, trend []stats.TrendPoint, window, width int) string {
	if ov.Tests == 0 {
		return "No tests yet. Finish a test to see your progress."
	}
	cards := renderSummaryCards(ov, width)
	spark := headerStyle.Render("Recent: " + stats.Sparkline(stats.TrendAccuracies(lastPoints(trend, 20))))
	var buf bytes.Buffer
	if err := stats.RenderTrendWithSize(&buf, trend, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(cards+"\n"+spark+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(ov stats.Overview, width int) string {
	change := fmt.Sprintf("%+.1f%%", ov.AccuracyChange*100)
	switch {
	case ov.AccuracyChange > 0:
		change = upStyle.Render(change)
	case ov.AccuracyChange < 0:
		change = downStyle.Render(change)
	}
	latest := "-"
	if ov.Latest != nil {
		latest = fmt.Sprintf("%d/%d", ov.Latest.Correct, ov.Latest.Answered)
	}
	cards := []string{
		metricCard("Tests", fmt.Sprintf("%d", ov.Tests)),
		metricCard("Latest", latest),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", ov.AverageAccuracy*100)),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", ov.BestAccuracy*100)),
		metricCard("Change", change),
		metricCard("Perfect Run", fmt.Sprintf("%d", ov.PerfectStreak)),
		metricCard("Sec/Question", fmt.Sprintf("%.1f", ov.AvgQuestionSeconds)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[:4]...)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[4:]...)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func lastPoints(points []stats.TrendPoint, n int) []stats.TrendPoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func trickyColumns() []table.Column {
	return []table.Column{
		{Title: "Table", Width: 6},
		{Title: "Error Rate", Width: 10},
		{Title: "Avg Time", Width: 9},
		{Title: "Questions", Width: 9},
		{Title: "Incorrect", Width: 9},
	}
}

func trickyRows(ranks []stats.TableRank) []table.Row {
	rows := make([]table.Row, 0, len(ranks))
	for _, r := range ranks {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.Table),
			fmt.Sprintf("%.1f%%", r.ErrorRate()*100),
			fmt.Sprintf("%.1fs", r.AvgTime().Seconds()),
			fmt.Sprintf("%d", r.Questions),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	return rows
}

func boardColumns(metric stats.Metric) []table.Column {
	headers := stats.LeaderboardHeaders(metric)
	widths := []int{3, 16, 10, 6, 7, 11}
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: widths[i]}
	}
	return cols
}

func boardRows(entries []stats.LeaderboardEntry, metric stats.Metric, activeID string) []table.Row {
	cells := stats.LeaderboardRows(entries, metric)
	rows := make([]table.Row, 0, len(cells))
	for i, c := range cells {
		if entries[i].ProfileID == activeID {
			c[1] = "> " + c[1]
		}
		rows = append(rows, table.Row(c))
	}
	return rows
}

func newTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
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

func nextMetric(m stats.Metric) stats.Metric {
	all := stats.Metrics()
	for i, candidate := range all {
		if candidate == m {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
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
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
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
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
