package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFactStatRecord(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var st FactStat
	st = st.Record(true, 3*time.Second, at)
	st = st.Record(false, 6*time.Second, at.Add(time.Minute))
	st = st.Record(true, -time.Second, at.Add(2*time.Minute))

	assert.Equal(t, 3, st.Attempts)
	assert.Equal(t, 2, st.Correct)
	assert.LessOrEqual(t, st.Correct, st.Attempts)
	assert.Equal(t, 3*time.Second, st.AvgLatency)
	assert.Equal(t, at.Add(2*time.Minute), st.LastSeen)
	assert.InDelta(t, 2.0/3.0, st.Accuracy(), 1e-9)
}

func TestFactStatNormalize(t *testing.T) {
	st := FactStat{Attempts: 2, Correct: 5, AvgLatency: -time.Second}.Normalize()
	assert.Equal(t, 2, st.Correct)
	assert.Equal(t, time.Duration(0), st.AvgLatency)
	assert.Equal(t, 0.0, FactStat{}.Accuracy())
}

func TestTableTally(t *testing.T) {
	var tally TableTally
	tally = tally.Add(true, 2*time.Second)
	tally = tally.Add(false, 4*time.Second)
	assert.Equal(t, 0.5, tally.ErrorRate())
	assert.Equal(t, 3*time.Second, tally.AvgTime())

	merged := tally.Merge(TableTally{Questions: 2, Correct: 2, TotalTime: 2 * time.Second})
	assert.Equal(t, 4, merged.Questions)
	assert.Equal(t, 0.25, merged.ErrorRate())
}

func TestFactAnswer(t *testing.T) {
	f := Fact{Table: 7, Factor: 8}
	assert.Equal(t, 56, f.Answer())
	assert.Equal(t, "7 x 8", f.String())
}

func TestTestResultAccuracyAndRemaining(t *testing.T) {
	r := TestResult{Answered: 4, Correct: 3, TimeLimit: time.Minute, Elapsed: 2 * time.Minute}
	assert.Equal(t, 0.75, r.Accuracy())
	assert.Equal(t, time.Duration(0), r.Remaining())
	assert.Equal(t, 0.0, TestResult{}.Accuracy())
}
