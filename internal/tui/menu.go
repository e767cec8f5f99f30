package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
)

const maxNameWidth = 20

type menuScreen struct {
	app      *App
	profiles []model.Profile
	cursor   int
	naming   bool
	input    textinput.Model
	err      string
}

// NewMenu returns the profile and mode selection screen.
func NewMenu(app *App) Screen {
	in := textinput.New()
	in.Placeholder = "Your name"
	in.CharLimit = 40
	in.Width = maxNameWidth
	return &menuScreen{app: app, input: in}
}

func (s *menuScreen) Enter() tea.Cmd {
	s.reload()
	if len(s.profiles) == 0 {
		return s.startNaming()
	}
	return nil
}

func (s *menuScreen) Exit() {
	s.input.Blur()
}

func (s *menuScreen) reload() {
	profiles, err := s.app.Store.ListProfiles(context.Background())
	if err != nil {
		s.app.log().Warn("failed to list profiles", zap.Error(err))
		s.app.SetNotice("Profiles could not be loaded.")
		return
	}
	s.profiles = profiles
	s.cursor = 0
	for i, p := range profiles {
		if p.ID == s.app.Profile.ID {
			s.cursor = i
			s.app.Profile = p
		}
	}
}

func (s *menuScreen) startNaming() tea.Cmd {
	s.naming = true
	s.err = ""
	s.input.Reset()
	return s.input.Focus()
}

func (s *menuScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if s.naming {
			var cmd tea.Cmd
			s.input, cmd = s.input.Update(msg)
			return s, cmd
		}
		return s, nil
	}
	if s.naming {
		return s.updateNaming(key)
	}
	switch key.String() {
	case "q", "esc":
		return nil, nil
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.profiles)-1 {
			s.cursor++
		}
	case "n":
		return s, s.startNaming()
	case "enter":
		s.selectCursor()
	case "p":
		if s.selectCursor() {
			return newSetup(s.app, setupPractice), nil
		}
	case "t":
		if s.selectCursor() {
			return newSetup(s.app, setupTest), nil
		}
	case "s":
		if s.selectCursor() {
			return NewProgress(s.app), nil
		}
	}
	return s, nil
}

func (s *menuScreen) updateNaming(key tea.KeyMsg) (Screen, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		if len(s.profiles) == 0 {
			return nil, nil
		}
		s.naming = false
		s.input.Blur()
		return s, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(s.input.Value())
		if name == "" {
			s.err = "Please type a name."
			return s, nil
		}
		p, err := s.app.Store.CreateProfile(context.Background(), name, "")
		if err != nil {
			s.app.log().Warn("failed to create profile", zap.Error(err))
			s.err = "That name could not be saved."
			return s, nil
		}
		s.app.Profile = p
		s.naming = false
		s.input.Blur()
		s.reload()
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(key)
	return s, cmd
}

func (s *menuScreen) selectCursor() bool {
	if s.cursor < 0 || s.cursor >= len(s.profiles) {
		return false
	}
	s.app.Profile = s.profiles[s.cursor]
	return true
}

func (s *menuScreen) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tafel"))
	b.WriteString("\n\n")
	if s.naming {
		b.WriteString("Who is playing?\n\n")
		b.WriteString(s.input.View())
		if s.err != "" {
			b.WriteString("\n" + incorrectStyle.Render(s.err))
		}
		b.WriteString("\n\n" + footerStyle.Render("enter save  esc back"))
		return b.String()
	}
	for i, p := range s.profiles {
		marker := "  "
		if i == s.cursor {
			marker = "> "
		}
		name := runewidth.FillRight(runewidth.Truncate(p.DisplayName, maxNameWidth, "..."), maxNameWidth)
		line := fmt.Sprintf("%s%s %4d coins", marker, name, p.Coins)
		if i == s.cursor {
			line = questionStyle.Render(line)
		} else {
			line = pendingStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	set := s.app.Settings
	b.WriteString("\n" + pendingStyle.Render(fmt.Sprintf("Practice: tables %s", joinTables(set.PracticeTables))))
	b.WriteString("\n" + pendingStyle.Render(fmt.Sprintf("Test: tables %s, %d questions, %s",
		joinTables(set.TestTables), set.Questions, set.Speed)))
	b.WriteString("\n\n" + footerStyle.Render("p practice  t test  s progress  n new player  q quit"))
	return b.String()
}
