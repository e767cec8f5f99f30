package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/scores"
	"github.com/verte-zerg/tafel/internal/selector"
	"github.com/verte-zerg/tafel/internal/stats"
)

type memStore struct {
	profiles  []model.Profile
	facts     map[string]map[model.Fact]model.FactStat
	failFacts bool
}

func newMemStore(profiles ...model.Profile) *memStore {
	return &memStore{profiles: profiles, facts: map[string]map[model.Fact]model.FactStat{}}
}

func (s *memStore) ListProfiles(context.Context) ([]model.Profile, error) {
	return append([]model.Profile(nil), s.profiles...), nil
}

func (s *memStore) CreateProfile(_ context.Context, name, avatar string) (model.Profile, error) {
	p := model.Profile{ID: "id-" + strconv.Itoa(len(s.profiles)+1), DisplayName: name, Avatar: avatar}
	s.profiles = append(s.profiles, p)
	return p, nil
}

func (s *memStore) UpdateCoins(_ context.Context, id string, delta int) (model.Profile, error) {
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles[i].Coins += delta
			return s.profiles[i], nil
		}
	}
	return model.Profile{}, errors.New("not found")
}

func (s *memStore) LoadFactStats(_ context.Context, id string) (map[model.Fact]model.FactStat, error) {
	if s.failFacts {
		return nil, errors.New("locked")
	}
	out := map[model.Fact]model.FactStat{}
	for k, v := range s.facts[id] {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) UpsertFactStat(_ context.Context, id string, stat model.FactStat) error {
	if s.failFacts {
		return errors.New("locked")
	}
	if s.facts[id] == nil {
		s.facts[id] = map[model.Fact]model.FactStat{}
	}
	s.facts[id][stat.Fact] = stat
	return nil
}

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestApp(store *memStore) (*App, *clock) {
	c := &clock{t: time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)}
	repo := scores.NewRepository(scores.NewMemory(), nil)
	app := &App{
		Store:    store,
		Scores:   repo,
		Stats:    &stats.Aggregator{Results: repo, FactStats: store, Profiles: store},
		Selector: selector.NewWithSeed(selector.Weights{}, 7),
		Settings: Settings{
			PracticeTables: []int{3},
			TestTables:     []int{4},
			Questions:      2,
			Speed:          "hare",
			CurveWindow:    5,
			Metric:         stats.MetricAccuracy,
		},
		Now: c.Now,
	}
	return app, c
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestMenuCreatesFirstProfile(t *testing.T) {
	store := newMemStore()
	app, _ := newTestApp(store)
	m := NewModel(app, NewMenu(app))
	m.Init()

	menu := m.screen.(*menuScreen)
	if !menu.naming {
		t.Fatalf("expected name prompt when no profiles exist")
	}
	press(m, tea.KeyEnter)
	if menu.err == "" {
		t.Fatalf("expected error for empty name")
	}
	typeText(m, "Mila")
	press(m, tea.KeyEnter)
	if len(store.profiles) != 1 || store.profiles[0].DisplayName != "Mila" {
		t.Fatalf("profile not created: %+v", store.profiles)
	}
	if app.Profile.DisplayName != "Mila" {
		t.Fatalf("new profile should become active, got %+v", app.Profile)
	}
	if !strings.Contains(menu.View(), "Mila") {
		t.Fatalf("menu should list the profile:\n%s", menu.View())
	}
}

func TestPracticeWritesThroughAndSummarizes(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, c := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewPractice(app, []int{3}))
	m.Init()

	practice := m.screen.(*practiceScreen)
	fact := practice.fact
	if fact.Table != 3 {
		t.Fatalf("fact outside selected tables: %v", fact)
	}
	c.Advance(3 * time.Second)
	typeText(m, "x")
	if practice.input.Value() != "" {
		t.Fatalf("letters should be ignored, got %q", practice.input.Value())
	}
	typeText(m, strconv.Itoa(fact.Answer()))
	press(m, tea.KeyEnter)

	stat, ok := store.facts["p"][fact]
	if !ok {
		t.Fatalf("fact stat not written through")
	}
	if stat.Attempts != 1 || stat.Correct != 1 || stat.AvgLatency != 3*time.Second {
		t.Fatalf("unexpected stat: %+v", stat)
	}
	if practice.tracker.CurrentStreak() != 1 {
		t.Fatalf("expected streak 1, got %d", practice.tracker.CurrentStreak())
	}

	press(m, tea.KeyEsc)
	summary, ok := m.screen.(*summaryScreen)
	if !ok {
		t.Fatalf("expected summary screen, got %T", m.screen)
	}
	if summary.sum.Answered != 1 || !summary.sum.Perfect() {
		t.Fatalf("unexpected summary: %+v", summary.sum)
	}
	press(m, tea.KeyEnter)
	if _, ok := m.screen.(*menuScreen); !ok {
		t.Fatalf("expected menu screen, got %T", m.screen)
	}
}

func TestPracticeContinuesWhenStoreFails(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	store.failFacts = true
	app, _ := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewPractice(app, []int{2}))
	m.Init()

	practice := m.screen.(*practiceScreen)
	typeText(m, strconv.Itoa(practice.fact.Answer()+1))
	press(m, tea.KeyEnter)
	if practice.tracker.Summary().Answered != 1 {
		t.Fatalf("answer should be recorded in memory")
	}
	if app.Notice() == "" {
		t.Fatalf("expected footer notice")
	}
	if !strings.Contains(m.renderFooter(), app.Notice()) {
		t.Fatalf("footer should show notice: %s", m.renderFooter())
	}
}

func TestPracticeInvalidTables(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, _ := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewPractice(app, nil))
	m.Init()

	if !strings.Contains(m.screen.View(), "invalid configuration") {
		t.Fatalf("expected configuration error:\n%s", m.screen.View())
	}
	press(m, tea.KeyEnter)
	if _, ok := m.screen.(*menuScreen); !ok {
		t.Fatalf("expected menu screen, got %T", m.screen)
	}
}

func TestTestStoresResultAndCreditsCoins(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, c := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewTest(app, []int{4}, 2, "hare"))
	m.Init()

	test := m.screen.(*testScreen)
	for i := 0; i < 2; i++ {
		q := test.questions[test.idx]
		if q.Fact.Table != 4 {
			t.Fatalf("question outside selected tables: %v", q)
		}
		c.Advance(5 * time.Second)
		typeText(m, strconv.Itoa(q.Fact.Answer()))
		press(m, tea.KeyEnter)
	}

	summary, ok := m.screen.(*summaryScreen)
	if !ok {
		t.Fatalf("expected summary screen, got %T", m.screen)
	}
	if summary.result == nil || summary.result.Correct != 2 || summary.result.Speed != "hare" {
		t.Fatalf("unexpected result: %+v", summary.result)
	}
	history := app.Scores.History(context.Background(), "p", 0)
	if len(history) != 1 {
		t.Fatalf("expected one stored result, got %d", len(history))
	}
	if history[0].CoinsEarned <= 0 {
		t.Fatalf("perfect test should earn coins")
	}
	if history[0].Elapsed != 10*time.Second {
		t.Fatalf("unexpected elapsed: %s", history[0].Elapsed)
	}
	if store.profiles[0].Coins != history[0].CoinsEarned || app.Profile.Coins != history[0].CoinsEarned {
		t.Fatalf("coins not credited: store=%d app=%d", store.profiles[0].Coins, app.Profile.Coins)
	}
	if len(store.facts["p"]) != 0 {
		t.Fatalf("tests should not write practice stats")
	}
}

func TestTestEndsWhenTimeRunsOut(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, c := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewTest(app, []int{4}, 5, "cheetah"))
	m.Init()

	c.Advance(time.Minute)
	m.Update(tickMsg(c.Now()))
	if _, ok := m.screen.(*testScreen); !ok {
		t.Fatalf("test should still be running")
	}
	c.Advance(5 * time.Minute)
	m.Update(tickMsg(c.Now()))
	summary, ok := m.screen.(*summaryScreen)
	if !ok {
		t.Fatalf("expected summary screen, got %T", m.screen)
	}
	if summary.result.Answered != 0 || summary.result.Elapsed != 5*time.Minute {
		t.Fatalf("unexpected result: %+v", summary.result)
	}
	if len(app.Scores.History(context.Background(), "p", 0)) != 1 {
		t.Fatalf("timed out test should still be stored")
	}
}

func TestTestAbortDiscardsResult(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, _ := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewTest(app, []int{4}, 3, ""))
	m.Init()

	if m.screen.(*testScreen).speed.Name != "turtle" {
		t.Fatalf("unknown speed should fall back to the default preset")
	}
	press(m, tea.KeyEsc)
	if _, ok := m.screen.(*menuScreen); !ok {
		t.Fatalf("expected menu screen, got %T", m.screen)
	}
	if len(app.Scores.History(context.Background(), "p", 0)) != 0 {
		t.Fatalf("aborted test should not be stored")
	}
}

func TestProgressScreenReturnsToMenu(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, _ := newTestApp(store)
	app.Profile = store.profiles[0]
	m := NewModel(app, NewProgress(app))
	m.Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	m.Init()

	if !strings.Contains(m.View(), "No tests yet.") {
		t.Fatalf("expected empty progress:\n%s", m.View())
	}
	cmd := press(m, tea.KeyEsc)
	if cmd == nil {
		t.Fatalf("expected close command")
	}
	m.Update(cmd())
	if _, ok := m.screen.(*menuScreen); !ok {
		t.Fatalf("expected menu screen, got %T", m.screen)
	}
}

func TestRenderFooterFormats(t *testing.T) {
	app, _ := newTestApp(newMemStore())
	app.Profile = model.Profile{ID: "p", DisplayName: "Noor", Coins: 42}
	m := NewModel(app, NewMenu(app))
	out := m.renderFooter()
	for _, want := range []string{"Player Noor", "Coins 42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(7*time.Minute + 5*time.Second); got != "7:05" {
		t.Fatalf("unexpected clock: %s", got)
	}
}

func TestMenuOpensTestSetup(t *testing.T) {
	store := newMemStore(model.Profile{ID: "p", DisplayName: "Noor"})
	app, _ := newTestApp(store)
	m := NewModel(app, NewMenu(app))
	m.Init()

	if !strings.Contains(m.screen.View(), "Test: tables 4, 2 questions, hare") {
		t.Fatalf("menu should show the active settings:\n%s", m.screen.View())
	}
	typeText(m, "t")
	setup, ok := m.screen.(*setupScreen)
	if !ok {
		t.Fatalf("expected setup screen, got %T", m.screen)
	}
	if got := setup.tables(); len(got) != 1 || got[0] != 4 {
		t.Fatalf("setup should start from the configured tables, got %v", got)
	}

	press(m, tea.KeyRight)
	press(m, tea.KeySpace)
	press(m, tea.KeyDown)
	press(m, tea.KeyRight)
	press(m, tea.KeyDown)
	press(m, tea.KeyRight)
	press(m, tea.KeyEnter)

	test, ok := m.screen.(*testScreen)
	if !ok {
		t.Fatalf("expected test screen, got %T", m.screen)
	}
	if len(test.tables) != 2 || test.tables[0] != 2 || test.tables[1] != 4 {
		t.Fatalf("unexpected tables %v", test.tables)
	}
	if test.count != 7 || len(test.questions) != 7 {
		t.Fatalf("expected 7 questions, got %d", test.count)
	}
	if test.speed.Name != "cheetah" {
		t.Fatalf("expected cheetah, got %q", test.speed.Name)
	}
	if app.Settings.Questions != 7 || app.Settings.Speed != "cheetah" {
		t.Fatalf("choices should become the new defaults: %+v", app.Settings)
	}
}

func TestPracticeSetupNeedsATable(t *testing.T) {
	app, _ := newTestApp(newMemStore(model.Profile{ID: "p", DisplayName: "Noor"}))
	app.Profile = model.Profile{ID: "p", DisplayName: "Noor"}
	m := NewModel(app, newSetup(app, setupPractice))
	m.Init()

	press(m, tea.KeyRight)
	press(m, tea.KeyRight)
	press(m, tea.KeySpace)
	press(m, tea.KeyEnter)
	setup, ok := m.screen.(*setupScreen)
	if !ok {
		t.Fatalf("expected to stay on setup, got %T", m.screen)
	}
	if !strings.Contains(setup.View(), "Pick at least one table.") {
		t.Fatalf("expected a prompt to pick a table:\n%s", setup.View())
	}

	typeText(m, "a")
	press(m, tea.KeyEnter)
	if _, ok := m.screen.(*practiceScreen); !ok {
		t.Fatalf("expected practice screen, got %T", m.screen)
	}
	if len(app.Settings.PracticeTables) != 10 {
		t.Fatalf("expected all tables, got %v", app.Settings.PracticeTables)
	}
}
