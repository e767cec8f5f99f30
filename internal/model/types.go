// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Default ranges for tables and factors.
const (
	DefaultMaxTable  = 10
	DefaultMaxFactor = 10
)

// Fact is a multiplication fact identified table-first: Table x Factor.
type Fact struct {
	Table  int
	Factor int
}

// Answer returns the product.
func (f Fact) Answer() int {
	return f.Table * f.Factor
}

// String implements fmt.Stringer.
func (f Fact) String() string {
	return fmt.Sprintf("%d x %d", f.Table, f.Factor)
}

// FactStat tracks a profile's performance on a single fact.
type FactStat struct {
	Fact       Fact
	Attempts   int
	Correct    int
	AvgLatency time.Duration
	LastSeen   time.Time
}

// Accuracy returns correct/attempts, or 0 when the fact was never asked.
func (s FactStat) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// Record folds one answer into the stat.
func (s FactStat) Record(correct bool, latency time.Duration, at time.Time) FactStat {
	if latency < 0 {
		latency = 0
	}
	s.Attempts++
	if correct {
		s.Correct++
	}
	// Incremental mean keeps the rolling average exact without storing samples.
	s.AvgLatency += (latency - s.AvgLatency) / time.Duration(s.Attempts)
	s.LastSeen = at
	return s
}

// Normalize clamps counters so that 0 <= Correct <= Attempts.
func (s FactStat) Normalize() FactStat {
	if s.Attempts < 0 {
		s.Attempts = 0
	}
	if s.Correct < 0 {
		s.Correct = 0
	}
	if s.Correct > s.Attempts {
		s.Correct = s.Attempts
	}
	if s.AvgLatency < 0 {
		s.AvgLatency = 0
	}
	return s
}

// TableTally holds per-table counters for a session or test.
type TableTally struct {
	Questions int           `json:"questions"`
	Correct   int           `json:"correct"`
	Incorrect int           `json:"incorrect"`
	TotalTime time.Duration `json:"total_time"`
}

// Add folds one answer into the tally.
func (t TableTally) Add(correct bool, latency time.Duration) TableTally {
	t.Questions++
	if correct {
		t.Correct++
	} else {
		t.Incorrect++
	}
	if latency > 0 {
		t.TotalTime += latency
	}
	return t
}

// Merge sums two tallies.
func (t TableTally) Merge(other TableTally) TableTally {
	t.Questions += other.Questions
	t.Correct += other.Correct
	t.Incorrect += other.Incorrect
	t.TotalTime += other.TotalTime
	return t
}

// ErrorRate returns incorrect/questions.
func (t TableTally) ErrorRate() float64 {
	if t.Questions == 0 {
		return 0
	}
	return float64(t.Incorrect) / float64(t.Questions)
}

// AvgTime returns the mean answer time.
func (t TableTally) AvgTime() time.Duration {
	if t.Questions == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Questions)
}

// TestResult is the immutable record of a completed timed test.
type TestResult struct {
	ID            string
	ProfileID     string
	ProfileName   string
	Timestamp     time.Time
	Tables        []int
	QuestionCount int
	Answered      int
	Correct       int
	Incorrect     int
	TimeLimit     time.Duration
	Elapsed       time.Duration
	Speed         string
	CoinsEarned   int
	TableStats    map[int]TableTally
}

// Accuracy returns correct/answered.
func (r TestResult) Accuracy() float64 {
	if r.Answered == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Answered)
}

// Remaining returns the unused part of the time limit.
func (r TestResult) Remaining() time.Duration {
	rem := r.TimeLimit - r.Elapsed
	if rem < 0 {
		return 0
	}
	return rem
}

// Profile is a player profile.
type Profile struct {
	ID          string
	DisplayName string
	Avatar      string
	Coins       int
	CreatedAt   time.Time
}
