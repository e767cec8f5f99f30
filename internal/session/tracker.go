// Package session tracks answers during a practice or test session.
package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/selector"
)

// ErrSessionFinished is returned when answers arrive after End.
var ErrSessionFinished = errors.New("session: already finished")

// State is the tracker lifecycle state.
type State int

// Tracker states.
const (
	NotStarted State = iota
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Recorder receives every updated FactStat as soon as an answer is recorded.
type Recorder interface {
	UpsertFactStat(ctx context.Context, profileID string, stat model.FactStat) error
}

// Config configures a Tracker.
type Config struct {
	ProfileID string
	Tables    []int
	Selector  *selector.Selector
	History   map[model.Fact]model.FactStat
	Recorder  Recorder // nil keeps stats in memory only
	Logger    *zap.Logger
	Now       func() time.Time
}

// Tracker holds the ephemeral state of one session.
type Tracker struct {
	profileID string
	tables    []int
	sel       *selector.Selector
	recorder  Recorder
	log       *zap.Logger
	now       func() time.Time

	state      State
	history    map[model.Fact]model.FactStat
	recent     []model.Fact
	recentSize int

	answered   int
	correct    int
	streak     int
	bestStreak int
	elapsed    time.Duration
	tallies    map[int]model.TableTally
	notice     error
}

// New creates a tracker in the NotStarted state.
func New(cfg Config) *Tracker {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	history := make(map[model.Fact]model.FactStat, len(cfg.History))
	for k, v := range cfg.History {
		history[k] = v.Normalize()
	}
	recentSize := selector.DefaultWeights().RecentSize
	if cfg.Selector != nil {
		recentSize = cfg.Selector.RecentSize()
	}
	return &Tracker{
		profileID:  cfg.ProfileID,
		tables:     append([]int(nil), cfg.Tables...),
		sel:        cfg.Selector,
		recorder:   cfg.Recorder,
		log:        logging.OrNop(cfg.Logger),
		now:        now,
		history:    history,
		recentSize: recentSize,
		tallies:    map[int]model.TableTally{},
	}
}

// State returns the lifecycle state.
func (t *Tracker) State() State {
	return t.state
}

// Start moves a fresh tracker to InProgress.
func (t *Tracker) Start() {
	if t.state == NotStarted {
		t.state = InProgress
	}
}

// End finishes the session. Calling it again is a no-op.
func (t *Tracker) End() {
	t.state = Finished
}

// Next asks the selector for the next fact to present.
func (t *Tracker) Next() (model.Fact, error) {
	if t.sel == nil {
		return model.Fact{}, selector.ErrInvalidConfiguration
	}
	return t.sel.NextFact(t.history, t.tables, t.recent)
}

// RecordAnswer folds one answer into the session and writes the fact stat through.
func (t *Tracker) RecordAnswer(ctx context.Context, fact model.Fact, correct bool, latency time.Duration) error {
	if t.state == Finished {
		return ErrSessionFinished
	}
	t.Start()
	if latency < 0 {
		latency = 0
	}

	t.answered++
	t.elapsed += latency
	if correct {
		t.correct++
		t.streak++
		if t.streak > t.bestStreak {
			t.bestStreak = t.streak
		}
	} else {
		t.streak = 0
	}
	t.tallies[fact.Table] = t.tallies[fact.Table].Add(correct, latency)

	t.recent = append(t.recent, fact)
	if len(t.recent) > t.recentSize {
		t.recent = t.recent[len(t.recent)-t.recentSize:]
	}

	stat := t.history[fact]
	stat.Fact = fact
	stat = stat.Record(correct, latency, t.now())
	t.history[fact] = stat

	if t.recorder != nil {
		if err := t.recorder.UpsertFactStat(ctx, t.profileID, stat); err != nil {
			t.notice = err
			t.log.Warn("fact stat write failed; continuing in memory",
				zap.String("profile", t.profileID),
				zap.Stringer("fact", fact),
				zap.Error(err))
		}
	}
	return nil
}

// CurrentStreak returns consecutive correct answers since the last miss.
func (t *Tracker) CurrentStreak() int {
	return t.streak
}

// History returns a copy of the tracker's fact stats.
func (t *Tracker) History() map[model.Fact]model.FactStat {
	out := make(map[model.Fact]model.FactStat, len(t.history))
	for k, v := range t.history {
		out[k] = v
	}
	return out
}

// Notice returns the last write-through failure, if any.
func (t *Tracker) Notice() error {
	return t.notice
}

// TableSummary describes one table's results in a session.
type TableSummary struct {
	Table int
	model.TableTally
}

// Summary aggregates a session for display.
type Summary struct {
	State         State
	Answered      int
	Correct       int
	Incorrect     int
	Accuracy      float64
	Streak        int
	BestStreak    int
	Elapsed       time.Duration
	Tables        []TableSummary // ordered by table number
	TrickyTables  []int
	SlowestTables []int
}

// Perfect reports whether every answered question was correct.
func (s Summary) Perfect() bool {
	return s.Answered > 0 && s.Incorrect == 0
}

// Summary returns the current aggregate. It never fails; before any answer
// it is simply empty.
func (t *Tracker) Summary() Summary {
	sum := Summary{
		State:      t.state,
		Answered:   t.answered,
		Correct:    t.correct,
		Incorrect:  t.answered - t.correct,
		Streak:     t.streak,
		BestStreak: t.bestStreak,
		Elapsed:    t.elapsed,
	}
	if t.answered > 0 {
		sum.Accuracy = float64(t.correct) / float64(t.answered)
	}
	for table, tally := range t.tallies {
		sum.Tables = append(sum.Tables, TableSummary{Table: table, TableTally: tally})
	}
	sort.Slice(sum.Tables, func(i, j int) bool { return sum.Tables[i].Table < sum.Tables[j].Table })
	sum.TrickyTables = TrickyTables(t.tallies)
	sum.SlowestTables = SlowestTables(t.tallies, 2)
	return sum
}

// Tallies returns a copy of the per-table tallies.
func (t *Tracker) Tallies() map[int]model.TableTally {
	out := make(map[int]model.TableTally, len(t.tallies))
	for k, v := range t.tallies {
		out[k] = v
	}
	return out
}

// TrickyTables ranks tables with at least one error by error rate, then by
// average answer time, then by table number.
func TrickyTables(tallies map[int]model.TableTally) []int {
	type item struct {
		table int
		tally model.TableTally
	}
	items := make([]item, 0, len(tallies))
	for table, tally := range tallies {
		if tally.Incorrect <= 0 || tally.Questions <= 0 {
			continue
		}
		items = append(items, item{table: table, tally: tally})
	}
	sort.Slice(items, func(i, j int) bool {
		ri, rj := items[i].tally.ErrorRate(), items[j].tally.ErrorRate()
		if ri != rj {
			return ri > rj
		}
		ai, aj := items[i].tally.AvgTime(), items[j].tally.AvgTime()
		if ai != aj {
			return ai > aj
		}
		return items[i].table < items[j].table
	})
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.table
	}
	return out
}

// SlowestTables returns up to n tables with the highest average answer time.
func SlowestTables(tallies map[int]model.TableTally, n int) []int {
	type item struct {
		table int
		avg   time.Duration
	}
	items := make([]item, 0, len(tallies))
	for table, tally := range tallies {
		if tally.Questions == 0 {
			continue
		}
		items = append(items, item{table: table, avg: tally.AvgTime()})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].avg == items[j].avg {
			return items[i].table < items[j].table
		}
		return items[i].avg > items[j].avg
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.table
	}
	return out
}
