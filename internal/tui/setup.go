package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tafel/internal/rewards"
)

const questionStep = 5

type setupMode int

const (
	setupPractice setupMode = iota
	setupTest
)

const (
	rowTables = iota
	rowQuestions
	rowSpeed
)

// setupScreen lets the player choose tables, and for tests the question
// count and speed, before a session starts.
type setupScreen struct {
	app       *App
	mode      setupMode
	maxTable  int
	picked    map[int]bool
	cursor    int
	row       int
	questions int
	speed     int
	speeds    []rewards.Speed
	err       string
}

func newSetup(app *App, mode setupMode) Screen {
	s := &setupScreen{
		app:       app,
		mode:      mode,
		maxTable:  app.Selector.Weights().MaxTable,
		picked:    map[int]bool{},
		cursor:    1,
		questions: app.Settings.Questions,
		speeds:    rewards.Speeds(),
	}
	tables := app.Settings.PracticeTables
	if mode == setupTest {
		tables = app.Settings.TestTables
	}
	for _, t := range tables {
		if t >= 1 && t <= s.maxTable {
			s.picked[t] = true
		}
	}
	if s.questions <= 0 {
		s.questions = questionStep
	}
	name := app.Settings.Speed
	if name == "" {
		name = rewards.DefaultSpeed
	}
	for i, sp := range s.speeds {
		if sp.Name == name {
			s.speed = i
		}
	}
	return s
}

func (s *setupScreen) Enter() tea.Cmd { return nil }

func (s *setupScreen) Exit() {}

func (s *setupScreen) lastRow() int {
	if s.mode == setupTest {
		return rowSpeed
	}
	return rowTables
}

func (s *setupScreen) tables() []int {
	out := make([]int, 0, len(s.picked))
	for t := 1; t <= s.maxTable; t++ {
		if s.picked[t] {
			out = append(out, t)
		}
	}
	return out
}

func (s *setupScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch key.String() {
	case "esc", "q":
		return NewMenu(s.app), nil
	case "up", "k":
		if s.row > 0 {
			s.row--
		}
	case "down", "j":
		if s.row < s.lastRow() {
			s.row++
		}
	case "left", "h":
		s.step(-1)
	case "right", "l":
		s.step(1)
	case " ", "x":
		if s.row == rowTables {
			s.picked[s.cursor] = !s.picked[s.cursor]
			s.err = ""
		}
	case "a":
		all := len(s.tables()) < s.maxTable
		for t := 1; t <= s.maxTable; t++ {
			s.picked[t] = all
		}
		s.err = ""
	case "enter":
		return s.start()
	}
	return s, nil
}

func (s *setupScreen) step(dir int) {
	switch s.row {
	case rowTables:
		s.cursor += dir
		if s.cursor < 1 {
			s.cursor = s.maxTable
		} else if s.cursor > s.maxTable {
			s.cursor = 1
		}
	case rowQuestions:
		s.questions += dir * questionStep
		if s.questions < questionStep {
			s.questions = questionStep
		}
	case rowSpeed:
		s.speed = (s.speed + dir + len(s.speeds)) % len(s.speeds)
	}
}

// start stores the choices as the new defaults and opens the session.
func (s *setupScreen) start() (Screen, tea.Cmd) {
	tables := s.tables()
	if len(tables) == 0 {
		s.err = "Pick at least one table."
		return s, nil
	}
	if s.mode == setupPractice {
		s.app.Settings.PracticeTables = tables
		return NewPractice(s.app, tables), nil
	}
	s.app.Settings.TestTables = tables
	s.app.Settings.Questions = s.questions
	s.app.Settings.Speed = s.speeds[s.speed].Name
	return NewTest(s.app, tables, s.questions, s.app.Settings.Speed), nil
}

func (s *setupScreen) View() string {
	var b strings.Builder
	title := "Practice"
	if s.mode == setupTest {
		title = "Test"
	}
	b.WriteString(titleStyle.Render(title + " setup"))
	b.WriteString("\n\n")
	b.WriteString(s.label(rowTables, "Tables   "))
	for t := 1; t <= s.maxTable; t++ {
		cell := fmt.Sprintf("%2d", t)
		if t == s.cursor && s.row == rowTables {
			cell = "[" + cell + "]"
		} else {
			cell = " " + cell + " "
		}
		if s.picked[t] {
			b.WriteString(correctStyle.Render(cell))
		} else {
			b.WriteString(pendingStyle.Render(cell))
		}
	}
	b.WriteString("\n")
	if s.mode == setupTest {
		sp := s.speeds[s.speed]
		b.WriteString(s.label(rowQuestions, "Questions"))
		b.WriteString(fmt.Sprintf(" %d\n", s.questions))
		b.WriteString(s.label(rowSpeed, "Speed    "))
		b.WriteString(fmt.Sprintf(" %s (%s)\n", sp.Name, formatClock(sp.TimeLimit)))
		b.WriteString("\n")
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Up to %d coins",
			rewards.EstimateMaxReward(s.tables(), s.questions, sp.Name))))
		b.WriteString("\n")
	}
	if s.err != "" {
		b.WriteString("\n" + incorrectStyle.Render(s.err) + "\n")
	}
	b.WriteString("\n" + footerStyle.Render("arrows move  space pick  a all  enter start  esc back"))
	return b.String()
}

func (s *setupScreen) label(row int, text string) string {
	if row == s.row {
		return questionStyle.Render("> " + text)
	}
	return pendingStyle.Render("  " + text)
}
