package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tafel/internal/statsui"
)

type progressScreen struct {
	app   *App
	inner *statsui.Model
}

// NewProgress returns the progress screen for the active profile.
func NewProgress(app *App) Screen {
	return &progressScreen{app: app}
}

func (s *progressScreen) Enter() tea.Cmd {
	s.inner = statsui.NewModel(s.app.Stats, statsui.Config{
		Profile:     s.app.Profile,
		CurveWindow: s.app.Settings.CurveWindow,
		TopTables:   s.app.Settings.TopTables,
		Metric:      s.app.Settings.Metric,
		Embedded:    true,
	})
	s.inner.Update(tea.WindowSizeMsg{Width: s.app.width, Height: s.app.bodyHeight()})
	return s.inner.Init()
}

func (s *progressScreen) Exit() {}

func (s *progressScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	if s.inner == nil {
		return s, nil
	}
	switch msg := msg.(type) {
	case statsui.CloseMsg:
		return NewMenu(s.app), nil
	case tea.WindowSizeMsg:
		msg.Height = s.app.bodyHeight()
		_, cmd := s.inner.Update(msg)
		return s, cmd
	}
	_, cmd := s.inner.Update(msg)
	return s, cmd
}

func (s *progressScreen) View() string {
	if s.inner == nil {
		return ""
	}
	return s.inner.View()
}
