package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tafel/internal/model"
)

// TestInfo describes the test a tracker was used for.
type TestInfo struct {
	ProfileName   string
	QuestionCount int
	TimeLimit     time.Duration
	Elapsed       time.Duration // wall time; zero falls back to summed latencies
	Speed         string
	At            time.Time
}

// Result builds the immutable TestResult for a finished test. Coins are left
// at zero; the caller scores the result afterwards.
func (t *Tracker) Result(info TestInfo) model.TestResult {
	sum := t.Summary()
	elapsed := info.Elapsed
	if elapsed <= 0 {
		elapsed = sum.Elapsed
	}
	if info.TimeLimit > 0 && elapsed > info.TimeLimit {
		elapsed = info.TimeLimit
	}
	at := info.At
	if at.IsZero() {
		at = t.now()
	}
	return model.TestResult{
		ID:            uuid.NewString(),
		ProfileID:     t.profileID,
		ProfileName:   info.ProfileName,
		Timestamp:     at,
		Tables:        append([]int(nil), t.tables...),
		QuestionCount: info.QuestionCount,
		Answered:      sum.Answered,
		Correct:       sum.Correct,
		Incorrect:     sum.Incorrect,
		TimeLimit:     info.TimeLimit,
		Elapsed:       elapsed,
		Speed:         info.Speed,
		TableStats:    t.Tallies(),
	}
}
