// Package tui provides the Bubble Tea game screens.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/rewards"
	"github.com/verte-zerg/tafel/internal/scores"
	"github.com/verte-zerg/tafel/internal/selector"
	"github.com/verte-zerg/tafel/internal/stats"
)

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// ProfileStore is the profile and practice-history storage used by the screens.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	CreateProfile(ctx context.Context, name, avatar string) (model.Profile, error)
	UpdateCoins(ctx context.Context, id string, delta int) (model.Profile, error)
	LoadFactStats(ctx context.Context, profileID string) (map[model.Fact]model.FactStat, error)
	UpsertFactStat(ctx context.Context, profileID string, stat model.FactStat) error
}

// Settings are the session defaults chosen by config and flags.
type Settings struct {
	PracticeTables []int
	TestTables     []int
	Questions      int
	Speed          string
	CurveWindow    int
	TopTables      int
	Metric         stats.Metric
}

// App is the context shared by every screen.
type App struct {
	Store    ProfileStore
	Scores   *scores.Repository
	Stats    *stats.Aggregator
	Selector *selector.Selector
	Scorer   rewards.Scorer
	Logger   *zap.Logger
	Settings Settings
	Profile  model.Profile
	Now      func() time.Time

	width  int
	height int
	notice string
}

// SetNotice shows a non-blocking message in the footer.
func (a *App) SetNotice(format string, args ...any) {
	a.notice = fmt.Sprintf(format, args...)
}

// Notice returns the footer message, if any.
func (a *App) Notice() string {
	if a.notice != "" {
		return a.notice
	}
	if a.Scores != nil {
		if err := a.Scores.Notice(); err != nil {
			return "Scores could not be saved."
		}
	}
	return ""
}

func (a *App) log() *zap.Logger {
	return logging.OrNop(a.Logger)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) scorer() rewards.Scorer {
	if a.Scorer != nil {
		return a.Scorer
	}
	return rewards.Default
}

func (a *App) bodyHeight() int {
	if a.height < 3 {
		return a.height
	}
	return a.height - 1
}

// Screen is one state of the game front end.
type Screen interface {
	Enter() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	Exit()
}

// Model hosts the active screen. A screen returning nil quits the program.
type Model struct {
	app    *App
	screen Screen
}

// NewModel constructs the root model starting at the given screen.
func NewModel(app *App, start Screen) *Model {
	return &Model{app: app, screen: start}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.screen.Enter()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.width = msg.Width
		m.app.height = msg.Height
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.screen.Exit()
			return m, tea.Quit
		}
	}
	next, cmd := m.screen.Update(msg)
	if next == nil {
		m.screen.Exit()
		return m, tea.Quit
	}
	if next != m.screen {
		m.screen.Exit()
		m.screen = next
		cmd = tea.Batch(cmd, next.Enter())
	}
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.screen.View()
	if m.app.width == 0 || m.app.height == 0 {
		return content
	}
	if _, ok := m.screen.(*progressScreen); ok {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if footer == "" || m.app.height < 3 {
		return lipgloss.Place(m.app.width, m.app.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.app.width, m.app.bodyHeight(), lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.app.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.app.Profile.ID != "" {
		segments = append(segments, fmt.Sprintf("Player %s", m.app.Profile.DisplayName))
		segments = append(segments, fmt.Sprintf("Coins %d", m.app.Profile.Coins))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if notice := m.app.Notice(); notice != "" {
		if footer != "" {
			footer += "  "
		}
		footer += incorrectStyle.Render(notice)
	}
	return footer
}

func joinTables(tables []int) string {
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("%d", t)
	}
	return strings.Join(parts, ", ")
}
