package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/rewards"
	"github.com/verte-zerg/tafel/internal/selector"
	"github.com/verte-zerg/tafel/internal/session"
	"github.com/verte-zerg/tafel/internal/stats"
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type testScreen struct {
	app       *App
	tables    []int
	count     int
	speed     rewards.Speed
	questions []selector.Question
	idx       int
	tracker   *session.Tracker
	input     textinput.Model

	startedAt time.Time
	shownAt   time.Time
	coins     int
	feedback  string
	err       error
}

// NewTest returns a timed test screen with count uniformly drawn questions.
func NewTest(app *App, tables []int, count int, speed string) Screen {
	preset, ok := rewards.LookupSpeed(speed)
	if !ok {
		preset, _ = rewards.LookupSpeed(rewards.DefaultSpeed)
	}
	return &testScreen{
		app:    app,
		tables: append([]int(nil), tables...),
		count:  count,
		speed:  preset,
		input:  newAnswerInput(),
	}
}

func (s *testScreen) Enter() tea.Cmd {
	questions, err := s.app.Selector.TestQuestions(s.tables, s.count)
	if err != nil {
		s.err = err
		return nil
	}
	s.questions = questions
	s.tracker = session.New(session.Config{
		ProfileID: s.app.Profile.ID,
		Tables:    s.tables,
		Selector:  s.app.Selector,
		Logger:    s.app.Logger,
		Now:       s.app.Now,
	})
	s.tracker.Start()
	s.startedAt = s.app.now()
	s.shownAt = s.startedAt
	return tea.Batch(s.input.Focus(), tick())
}

func (s *testScreen) Exit() {
	s.input.Blur()
}

func (s *testScreen) remaining() time.Duration {
	rem := s.speed.TimeLimit - s.app.now().Sub(s.startedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

func (s *testScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if s.tracker == nil || s.tracker.State() == session.Finished {
			return s, nil
		}
		if s.remaining() <= 0 {
			return s.finish(), nil
		}
		return s, tick()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			if s.tracker != nil {
				s.tracker.End()
			}
			return NewMenu(s.app), nil
		case tea.KeyEnter:
			if s.err != nil {
				return NewMenu(s.app), nil
			}
			return s.submit()
		}
		if !digitsOnly(msg) {
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *testScreen) submit() (Screen, tea.Cmd) {
	value := strings.TrimSpace(s.input.Value())
	if value == "" {
		return s, nil
	}
	answer, err := strconv.Atoi(value)
	if err != nil {
		s.input.Reset()
		return s, nil
	}
	if s.remaining() <= 0 {
		return s.finish(), nil
	}
	q := s.questions[s.idx]
	correct := answer == q.Fact.Answer()
	latency := s.app.now().Sub(s.shownAt)
	if err := s.tracker.RecordAnswer(context.Background(), q.Fact, correct, latency); err != nil {
		s.err = err
		return s, nil
	}
	delta := rewards.AnswerDelta(q.Fact.Table, correct)
	s.coins += delta
	if correct {
		s.feedback = correctStyle.Render(fmt.Sprintf("+%d", delta))
	} else {
		s.feedback = incorrectStyle.Render(fmt.Sprintf("%d  (%s = %d)", delta, q, q.Fact.Answer()))
	}
	s.idx++
	if s.idx >= len(s.questions) {
		return s.finish(), nil
	}
	s.shownAt = s.app.now()
	s.input.Reset()
	return s, nil
}

// finish scores and stores the test, then credits the coins.
func (s *testScreen) finish() Screen {
	s.tracker.End()
	ctx := context.Background()
	now := s.app.now()
	result := s.tracker.Result(session.TestInfo{
		ProfileName:   s.app.Profile.DisplayName,
		QuestionCount: len(s.questions),
		TimeLimit:     s.speed.TimeLimit,
		Elapsed:       now.Sub(s.startedAt),
		Speed:         s.speed.Name,
		At:            now,
	})
	result.CoinsEarned = s.app.scorer().Score(result, s.app.Profile)

	saved, err := s.app.Scores.Append(ctx, result)
	if err != nil {
		s.app.SetNotice("This test could not be saved.")
	} else {
		result = saved
	}
	if result.CoinsEarned > 0 {
		profile, err := s.app.Store.UpdateCoins(ctx, s.app.Profile.ID, result.CoinsEarned)
		if err != nil {
			s.app.log().Warn("failed to credit coins",
				zap.String("profile", s.app.Profile.ID),
				zap.Int("coins", result.CoinsEarned),
				zap.Error(err))
			s.app.SetNotice("Coins could not be saved.")
			s.app.Profile.Coins += result.CoinsEarned
		} else {
			s.app.Profile = profile
		}
	}
	return newSummary(s.app, "Test", s.tracker.Summary(), &result)
}

func (s *testScreen) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Test: tables %s  (%s, up to %d coins)",
		joinTables(s.tables), s.speed.Name, rewards.EstimateMaxReward(s.tables, s.count, s.speed.Name))))
	b.WriteString("\n\n")
	if s.err != nil {
		b.WriteString(incorrectStyle.Render(s.err.Error()))
		b.WriteString("\n\n" + footerStyle.Render("enter back to menu"))
		return b.String()
	}
	if s.idx >= len(s.questions) {
		return b.String()
	}
	q := s.questions[s.idx]
	b.WriteString(pendingStyle.Render(fmt.Sprintf("Question %d of %d  Time left %s  Coins %+d",
		s.idx+1, len(s.questions), formatClock(s.remaining()), s.coins)))
	b.WriteString("\n\n")
	b.WriteString(questionStyle.Render(fmt.Sprintf("%s = ", q)))
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	b.WriteString(s.feedback)
	b.WriteString("\n\n" + footerStyle.Render("enter answer  esc give up"))
	return b.String()
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// testResultLine describes a stored result in one line.
func testResultLine(r model.TestResult) string {
	_, perMinute := stats.TestMetrics(r)
	return fmt.Sprintf("%d of %d correct in %s (%.1f per minute), %d coins",
		r.Correct, r.QuestionCount, formatClock(r.Elapsed), perMinute, r.CoinsEarned)
}
