package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/session"
)

type summaryScreen struct {
	app    *App
	title  string
	sum    session.Summary
	result *model.TestResult
}

func newSummary(app *App, title string, sum session.Summary, result *model.TestResult) Screen {
	return &summaryScreen{app: app, title: title, sum: sum, result: result}
}

func (s *summaryScreen) Enter() tea.Cmd { return nil }

func (s *summaryScreen) Exit() {
	if s.app.Scores != nil {
		s.app.Scores.ClearNotice()
	}
}

func (s *summaryScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch key.String() {
	case "enter", "esc", "q":
		return NewMenu(s.app), nil
	case "s":
		return NewProgress(s.app), nil
	}
	return s, nil
}

func (s *summaryScreen) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.title + " finished"))
	b.WriteString("\n\n")
	if s.sum.Answered == 0 {
		b.WriteString(pendingStyle.Render("No answers this time."))
	} else {
		headline := fmt.Sprintf("%d of %d correct (%.0f%%)", s.sum.Correct, s.sum.Answered, s.sum.Accuracy*100)
		if s.sum.Perfect() {
			b.WriteString(correctStyle.Render(headline + "  Perfect!"))
		} else {
			b.WriteString(questionStyle.Render(headline))
		}
		b.WriteString("\n")
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Best streak %d", s.sum.BestStreak)))
	}
	if s.result != nil {
		b.WriteString("\n")
		b.WriteString(pendingStyle.Render(testResultLine(*s.result)))
	}
	if len(s.sum.Tables) > 0 {
		b.WriteString("\n\n")
		for _, t := range s.sum.Tables {
			b.WriteString(pendingStyle.Render(fmt.Sprintf("Table %2d  %d/%d  %.1fs each",
				t.Table, t.Correct, t.Questions, t.AvgTime().Seconds())))
			b.WriteString("\n")
		}
	}
	if len(s.sum.TrickyTables) > 0 {
		b.WriteString("\n")
		b.WriteString(incorrectStyle.Render("Tricky tables: " + joinTables(s.sum.TrickyTables)))
	}
	b.WriteString("\n\n" + footerStyle.Render("enter menu  s progress"))
	return b.String()
}
