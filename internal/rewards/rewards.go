// Package rewards computes coin awards for tests.
package rewards

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/tafel/internal/model"
)

const (
	incorrectPenalty = 2
	timeBonusScale   = 8
)

// Speed is a test pace preset.
type Speed struct {
	Name      string
	TimeLimit time.Duration
	Bonus     int
}

var speeds = []Speed{
	{Name: "snail", TimeLimit: 10 * time.Minute, Bonus: 0},
	{Name: "turtle", TimeLimit: 8 * time.Minute, Bonus: 2},
	{Name: "hare", TimeLimit: 7 * time.Minute, Bonus: 4},
	{Name: "cheetah", TimeLimit: 5 * time.Minute, Bonus: 6},
}

// DefaultSpeed is used when no preset is chosen.
const DefaultSpeed = "turtle"

// Speeds returns the presets from slowest to fastest.
func Speeds() []Speed {
	out := make([]Speed, len(speeds))
	copy(out, speeds)
	return out
}

// LookupSpeed finds a preset by case-insensitive name.
func LookupSpeed(name string) (Speed, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range speeds {
		if s.Name == name {
			return s, true
		}
	}
	return Speed{}, false
}

// Scorer turns a finished test into a coin award.
type Scorer interface {
	Score(result model.TestResult, profile model.Profile) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(result model.TestResult, profile model.Profile) int

// Score implements Scorer.
func (f ScorerFunc) Score(result model.TestResult, profile model.Profile) int {
	return f(result, profile)
}

// Default is the standard coin formula.
var Default Scorer = ScorerFunc(defaultScore)

// PerQuestion returns the coins for a correct answer on a table.
func PerQuestion(table int) int {
	return 2 + table/4
}

// AnswerDelta returns the live coin change for a single answer.
func AnswerDelta(table int, correct bool) int {
	per := PerQuestion(table)
	if correct {
		return per
	}
	if half := per / 2; half > incorrectPenalty {
		return -half
	}
	return -incorrectPenalty
}

// TimeBonus returns the bonus for the fraction of time left.
func TimeBonus(remaining, limit time.Duration) int {
	if limit <= 0 {
		return 0
	}
	ratio := float64(remaining) / float64(limit)
	ratio = math.Max(0, math.Min(1, ratio))
	return int(math.Round(ratio * timeBonusScale))
}

// SpeedBonus returns the static bonus for a preset name.
func SpeedBonus(name string) int {
	s, ok := LookupSpeed(name)
	if !ok {
		return 0
	}
	return s.Bonus
}

func defaultScore(result model.TestResult, _ model.Profile) int {
	tables := make([]int, 0, len(result.TableStats))
	for table := range result.TableStats {
		tables = append(tables, table)
	}
	sort.Ints(tables)

	total := 0
	for _, table := range tables {
		tally := result.TableStats[table]
		total += tally.Correct * PerQuestion(table)
		total -= tally.Incorrect * incorrectPenalty
	}
	if total < 0 {
		total = 0
	}
	bonus := TimeBonus(result.Remaining(), result.TimeLimit) + SpeedBonus(result.Speed)
	if bonus > 0 {
		total += bonus
	}
	return total
}

// EstimateMaxReward estimates the coins for a perfect, instant run.
func EstimateMaxReward(tables []int, questions int, speed string) int {
	if len(tables) == 0 || questions <= 0 {
		return 0
	}
	sum := 0
	for _, t := range tables {
		sum += PerQuestion(t)
	}
	avg := float64(sum) / float64(len(tables))
	total := int(math.Round(avg * float64(questions)))
	return total + timeBonusScale + SpeedBonus(speed)
}
