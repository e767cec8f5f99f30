package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/session"
)

type practiceScreen struct {
	app     *App
	tables  []int
	tracker *session.Tracker
	input   textinput.Model

	fact     model.Fact
	shownAt  time.Time
	feedback string
	err      error
}

// NewPractice returns an open-ended adaptive practice screen.
func NewPractice(app *App, tables []int) Screen {
	return &practiceScreen{
		app:    app,
		tables: append([]int(nil), tables...),
		input:  newAnswerInput(),
	}
}

func (s *practiceScreen) Enter() tea.Cmd {
	ctx := context.Background()
	history, err := s.app.Store.LoadFactStats(ctx, s.app.Profile.ID)
	if err != nil {
		s.app.log().Warn("failed to load fact stats", zap.String("profile", s.app.Profile.ID), zap.Error(err))
		s.app.SetNotice("Practice history could not be loaded.")
		history = nil
	}
	s.tracker = session.New(session.Config{
		ProfileID: s.app.Profile.ID,
		Tables:    s.tables,
		Selector:  s.app.Selector,
		History:   history,
		Recorder:  s.app.Store,
		Logger:    s.app.Logger,
		Now:       s.app.Now,
	})
	s.tracker.Start()
	s.next()
	return s.input.Focus()
}

func (s *practiceScreen) Exit() {
	s.input.Blur()
}

func (s *practiceScreen) next() {
	fact, err := s.tracker.Next()
	if err != nil {
		s.err = err
		return
	}
	s.fact = fact
	s.shownAt = s.app.now()
	s.input.Reset()
}

func (s *practiceScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	switch key.Type {
	case tea.KeyEsc:
		s.tracker.End()
		return newSummary(s.app, "Practice", s.tracker.Summary(), nil), nil
	case tea.KeyEnter:
		if s.err != nil {
			return NewMenu(s.app), nil
		}
		s.submit()
		return s, nil
	}
	if !digitsOnly(key) {
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(key)
	return s, cmd
}

func (s *practiceScreen) submit() {
	value := strings.TrimSpace(s.input.Value())
	if value == "" {
		return
	}
	answer, err := strconv.Atoi(value)
	if err != nil {
		s.input.Reset()
		return
	}
	correct := answer == s.fact.Answer()
	latency := s.app.now().Sub(s.shownAt)
	if err := s.tracker.RecordAnswer(context.Background(), s.fact, correct, latency); err != nil {
		s.err = err
		return
	}
	if s.tracker.Notice() != nil {
		s.app.SetNotice("Progress is kept for this session only.")
	}
	if correct {
		s.feedback = correctStyle.Render("Correct!")
	} else {
		s.feedback = incorrectStyle.Render(fmt.Sprintf("%s = %d", s.fact, s.fact.Answer()))
	}
	s.next()
}

func (s *practiceScreen) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Practice: tables " + joinTables(s.tables)))
	b.WriteString("\n\n")
	if s.err != nil {
		b.WriteString(incorrectStyle.Render(s.err.Error()))
		b.WriteString("\n\n" + footerStyle.Render("enter back to menu"))
		return b.String()
	}
	b.WriteString(questionStyle.Render(fmt.Sprintf("%s = ", s.fact)))
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	b.WriteString(s.feedback)
	b.WriteString("\n\n")
	sum := s.tracker.Summary()
	b.WriteString(pendingStyle.Render(fmt.Sprintf("Streak %d  Answered %d  Accuracy %.0f%%",
		s.tracker.CurrentStreak(), sum.Answered, sum.Accuracy*100)))
	b.WriteString("\n" + footerStyle.Render("enter answer  esc finish"))
	return b.String()
}

func newAnswerInput() textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "?"
	in.CharLimit = 4
	in.Width = 5
	return in
}

// digitsOnly reports whether a key may reach the answer input.
func digitsOnly(key tea.KeyMsg) bool {
	if key.Type != tea.KeyRunes {
		return true
	}
	for _, r := range key.Runes {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
