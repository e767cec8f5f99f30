// Package selector picks multiplication facts, weighting practice toward weak ones.
package selector

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/verte-zerg/tafel/internal/model"
)

// ErrInvalidConfiguration reports an empty or out-of-range table selection.
var ErrInvalidConfiguration = errors.New("selector: invalid configuration")

// Weights tunes the adaptive weighting. Zero fields fall back to defaults.
type Weights struct {
	Base          float64 // scale of the accuracy deficit; default 4
	MinWeight     float64 // floor for mastered facts; default 0.25
	SlowRatio     float64 // slow when avg latency > ratio * profile mean; default 1.5
	SlowBoost     float64 // multiplier for slow facts; default 1.5
	RecentDamping float64 // multiplier for recently asked facts; default 0.05
	RecentSize    int     // how many recent facts are damped; default 3
	MaxTable      int     // default model.DefaultMaxTable
	MaxFactor     int     // default model.DefaultMaxFactor
}

// DefaultWeights returns the default weighting.
func DefaultWeights() Weights {
	return Weights{}.withDefaults()
}

func (w Weights) withDefaults() Weights {
	if w.Base <= 0 {
		w.Base = 4
	}
	if w.MinWeight <= 0 {
		w.MinWeight = 0.25
	}
	if w.SlowRatio <= 0 {
		w.SlowRatio = 1.5
	}
	if w.SlowBoost < 1 {
		w.SlowBoost = 1.5
	}
	if w.RecentDamping <= 0 || w.RecentDamping > 1 {
		w.RecentDamping = 0.05
	}
	if w.RecentSize <= 0 {
		w.RecentSize = 3
	}
	if w.MaxTable <= 0 {
		w.MaxTable = model.DefaultMaxTable
	}
	if w.MaxFactor <= 0 {
		w.MaxFactor = model.DefaultMaxFactor
	}
	return w
}

// Selector draws facts at random.
type Selector struct {
	rnd     *rand.Rand
	weights Weights
}

// New returns a Selector seeded with the current time.
func New(w Weights) *Selector {
	return NewWithSeed(w, time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Selector.
func NewWithSeed(w Weights, seed int64) *Selector {
	return &Selector{
		rnd:     rand.New(rand.NewSource(seed)),
		weights: w.withDefaults(),
	}
}

// Weights returns the effective weighting.
func (s *Selector) Weights() Weights {
	return s.weights
}

// RecentSize returns how many recent facts the selector damps.
func (s *Selector) RecentSize() int {
	return s.weights.RecentSize
}

// NextFact draws the next practice fact from the selected tables.
func (s *Selector) NextFact(history map[model.Fact]model.FactStat, tables []int, recent []model.Fact) (model.Fact, error) {
	eligible, err := s.Eligible(tables)
	if err != nil {
		return model.Fact{}, err
	}
	if len(eligible) == 1 {
		return eligible[0], nil
	}

	recentSet := recentFacts(recent, s.weights.RecentSize)
	meanLatency := ProfileMeanLatency(history)

	weights := make([]float64, len(eligible))
	total := 0.0
	for i, fact := range eligible {
		w := s.weight(history[fact], meanLatency)
		if _, ok := recentSet[fact]; ok {
			w *= s.weights.RecentDamping
		}
		weights[i] = w
		total += w
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return eligible[s.rnd.Intn(len(eligible))], nil
	}

	r := s.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return eligible[i], nil
		}
	}
	return eligible[len(eligible)-1], nil
}

// Weight returns the undamped weight of a fact given the profile history.
func (s *Selector) Weight(fact model.Fact, history map[model.Fact]model.FactStat) float64 {
	return s.weight(history[fact], ProfileMeanLatency(history))
}

func (s *Selector) weight(stat model.FactStat, meanLatency time.Duration) float64 {
	w := s.weights
	if stat.Attempts <= 0 {
		return (w.MinWeight + w.Base) * w.SlowBoost
	}
	stat = stat.Normalize()
	weight := w.MinWeight + w.Base*(1-stat.Accuracy())
	if meanLatency > 0 && float64(stat.AvgLatency) > w.SlowRatio*float64(meanLatency) {
		weight *= w.SlowBoost
	}
	return weight
}

// Eligible lists every fact of the selected tables in a stable order.
func (s *Selector) Eligible(tables []int) ([]model.Fact, error) {
	uniq, err := s.validateTables(tables)
	if err != nil {
		return nil, err
	}
	out := make([]model.Fact, 0, len(uniq)*s.weights.MaxFactor)
	for _, t := range uniq {
		for f := 1; f <= s.weights.MaxFactor; f++ {
			out = append(out, model.Fact{Table: t, Factor: f})
		}
	}
	return out, nil
}

// Question is a test question; Swapped means it is shown as Factor x Table.
type Question struct {
	Fact    model.Fact
	Swapped bool
}

// Left returns the left operand as displayed.
func (q Question) Left() int {
	if q.Swapped {
		return q.Fact.Factor
	}
	return q.Fact.Table
}

// Right returns the right operand as displayed.
func (q Question) Right() int {
	if q.Swapped {
		return q.Fact.Table
	}
	return q.Fact.Factor
}

// String implements fmt.Stringer.
func (q Question) String() string {
	return fmt.Sprintf("%d x %d", q.Left(), q.Right())
}

// TestQuestions builds a shuffled list of uniformly drawn questions.
func (s *Selector) TestQuestions(tables []int, count int) ([]Question, error) {
	uniq, err := s.validateTables(tables)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: question count must be > 0", ErrInvalidConfiguration)
	}
	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		fact := model.Fact{
			Table:  uniq[s.rnd.Intn(len(uniq))],
			Factor: 1 + s.rnd.Intn(s.weights.MaxFactor),
		}
		out = append(out, Question{Fact: fact, Swapped: s.rnd.Float64() < 0.5})
	}
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

func (s *Selector) validateTables(tables []int) ([]int, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables selected", ErrInvalidConfiguration)
	}
	seen := make(map[int]struct{}, len(tables))
	uniq := make([]int, 0, len(tables))
	for _, t := range tables {
		if t < 1 || t > s.weights.MaxTable {
			return nil, fmt.Errorf("%w: table %d outside 1-%d", ErrInvalidConfiguration, t, s.weights.MaxTable)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.Ints(uniq)
	return uniq, nil
}

// ProfileMeanLatency returns the attempt-weighted mean latency across facts.
func ProfileMeanLatency(history map[model.Fact]model.FactStat) time.Duration {
	var sum float64
	var n int
	for _, st := range history {
		if st.Attempts <= 0 {
			continue
		}
		sum += float64(st.AvgLatency) * float64(st.Attempts)
		n += st.Attempts
	}
	if n == 0 {
		return 0
	}
	return time.Duration(sum / float64(n))
}

func recentFacts(recent []model.Fact, size int) map[model.Fact]struct{} {
	if len(recent) > size {
		recent = recent[len(recent)-size:]
	}
	set := make(map[model.Fact]struct{}, len(recent))
	for _, f := range recent {
		set[f] = struct{}{}
	}
	return set
}
