package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
)

// ErrUnknownMetric is returned for a leaderboard metric that is not supported.
var ErrUnknownMetric = errors.New("stats: unknown metric")

// Metric selects the leaderboard ranking value.
type Metric string

// Supported metrics.
const (
	MetricAccuracy Metric = "accuracy"
	MetricSpeed    Metric = "speed"
	MetricCoins    Metric = "coins"
)

// Metrics lists the supported metrics.
func Metrics() []Metric {
	return []Metric{MetricAccuracy, MetricSpeed, MetricCoins}
}

// ParseMetric validates a metric name.
func ParseMetric(value string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Metrics() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, value)
}

// LeaderboardEntry is one profile's standing.
type LeaderboardEntry struct {
	ProfileID    string
	DisplayName  string
	Value        float64
	Tests        int
	AvgAccuracy  float64
	BestAccuracy float64
	LastActivity time.Time
}

// Leaderboard ranks every profile with test history by metric, descending.
// Ties go to the most recently active profile, then to the lower id.
func (a *Aggregator) Leaderboard(ctx context.Context, metric Metric) ([]LeaderboardEntry, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	profiles := map[string]model.Profile{}
	if a.Profiles != nil {
		list, err := a.Profiles.ListProfiles(ctx)
		if err != nil {
			a.log().Warn("profile list unavailable", zap.Error(err))
		}
		for _, p := range list {
			profiles[p.ID] = p
		}
	}
	ids := map[string]struct{}{}
	for id := range profiles {
		ids[id] = struct{}{}
	}
	if a.Results != nil {
		for id := range a.Results.AllProfilesLatest(ctx) {
			ids[id] = struct{}{}
		}
	}

	out := make([]LeaderboardEntry, 0, len(ids))
	for id := range ids {
		results := a.chronological(ctx, id)
		if len(results) == 0 {
			continue
		}
		entry := summarize(id, results)
		p, known := profiles[id]
		if known {
			entry.DisplayName = p.DisplayName
		}
		switch metric {
		case MetricAccuracy:
			entry.Value = entry.AvgAccuracy
		case MetricSpeed:
			entry.Value = answeredPerMinute(results)
		case MetricCoins:
			if known {
				entry.Value = float64(p.Coins)
			} else {
				entry.Value = float64(coinsEarned(results))
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ProfileID < out[j].ProfileID
	})
	return out, nil
}

func summarize(profileID string, results []model.TestResult) LeaderboardEntry {
	entry := LeaderboardEntry{ProfileID: profileID, Tests: len(results)}
	var sum float64
	for _, r := range results {
		acc := r.Accuracy()
		sum += acc
		if acc > entry.BestAccuracy {
			entry.BestAccuracy = acc
		}
		if r.Timestamp.After(entry.LastActivity) {
			entry.LastActivity = r.Timestamp
		}
		if r.ProfileName != "" {
			entry.DisplayName = r.ProfileName
		}
	}
	entry.AvgAccuracy = sum / float64(len(results))
	if entry.DisplayName == "" {
		entry.DisplayName = profileID
	}
	return entry
}

func answeredPerMinute(results []model.TestResult) float64 {
	var (
		answered int
		elapsed  time.Duration
	)
	for _, r := range results {
		answered += r.Answered
		elapsed += r.Elapsed
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(answered) / elapsed.Minutes()
}

func coinsEarned(results []model.TestResult) int {
	total := 0
	for _, r := range results {
		total += r.CoinsEarned
	}
	return total
}
