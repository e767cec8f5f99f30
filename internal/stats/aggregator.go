package stats

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
)

// ResultSource serves stored test results. Reads never fail; an unreadable
// store yields empty results.
type ResultSource interface {
	History(ctx context.Context, profileID string, limit int) []model.TestResult
	AllProfilesLatest(ctx context.Context) map[string]model.TestResult
}

// FactStatSource serves a profile's practice history.
type FactStatSource interface {
	LoadFactStats(ctx context.Context, profileID string) (map[model.Fact]model.FactStat, error)
}

// ProfileSource lists known profiles.
type ProfileSource interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
}

// Aggregator computes progress figures from stored history.
// FactStats and Profiles are optional.
type Aggregator struct {
	Results   ResultSource
	FactStats FactStatSource
	Profiles  ProfileSource
	Logger    *zap.Logger
}

// TrendPoint is one test's accuracy at a point in time.
type TrendPoint struct {
	Timestamp time.Time
	Accuracy  float64
}

// Overview summarizes a profile's test history.
type Overview struct {
	Tests              int
	Latest             *model.TestResult
	AverageAccuracy    float64
	BestAccuracy       float64
	AccuracyChange     float64 // latest minus previous, 0 with fewer than two tests
	PerfectStreak      int     // longest run of consecutive perfect tests
	AvgQuestionSeconds float64
}

func (a *Aggregator) log() *zap.Logger {
	return logging.OrNop(a.Logger)
}

// chronological returns a profile's results oldest first.
func (a *Aggregator) chronological(ctx context.Context, profileID string) []model.TestResult {
	if a.Results == nil {
		return nil
	}
	history := a.Results.History(ctx, profileID, 0)
	out := make([]model.TestResult, len(history))
	for i, r := range history {
		out[len(history)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Trend returns (timestamp, accuracy) per test, oldest first.
func (a *Aggregator) Trend(ctx context.Context, profileID string) []TrendPoint {
	results := a.chronological(ctx, profileID)
	out := make([]TrendPoint, 0, len(results))
	for _, r := range results {
		out = append(out, TrendPoint{Timestamp: r.Timestamp, Accuracy: r.Accuracy()})
	}
	return out
}

// Overview returns headline figures for a profile.
func (a *Aggregator) Overview(ctx context.Context, profileID string) Overview {
	results := a.chronological(ctx, profileID)
	var ov Overview
	ov.Tests = len(results)
	if ov.Tests == 0 {
		return ov
	}
	latest := results[len(results)-1]
	ov.Latest = &latest

	var (
		sumAcc   float64
		answered int
		elapsed  time.Duration
		run      int
	)
	for _, r := range results {
		acc := r.Accuracy()
		sumAcc += acc
		if acc > ov.BestAccuracy {
			ov.BestAccuracy = acc
		}
		answered += r.Answered
		elapsed += r.Elapsed
		if r.Answered > 0 && r.Incorrect == 0 && r.Correct == r.Answered {
			run++
			if run > ov.PerfectStreak {
				ov.PerfectStreak = run
			}
		} else {
			run = 0
		}
	}
	ov.AverageAccuracy = sumAcc / float64(ov.Tests)
	if ov.Tests > 1 {
		ov.AccuracyChange = latest.Accuracy() - results[len(results)-2].Accuracy()
	}
	if answered > 0 {
		ov.AvgQuestionSeconds = elapsed.Seconds() / float64(answered)
	}
	return ov
}
