package stats

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/scores"
	"github.com/verte-zerg/tafel/internal/session"
)

type factStats map[string]map[model.Fact]model.FactStat

func (f factStats) LoadFactStats(_ context.Context, id string) (map[model.Fact]model.FactStat, error) {
	return f[id], nil
}

type brokenFacts struct{}

func (brokenFacts) LoadFactStats(context.Context, string) (map[model.Fact]model.FactStat, error) {
	return nil, errors.New("locked")
}

type profileList []model.Profile

func (p profileList) ListProfiles(context.Context) ([]model.Profile, error) {
	return p, nil
}

var day = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func appendResult(t *testing.T, repo *scores.Repository, r model.TestResult) {
	t.Helper()
	_, err := repo.Append(context.Background(), r)
	require.NoError(t, err)
}

func testResult(profile string, at time.Time, answered, correct int, elapsed time.Duration) model.TestResult {
	return model.TestResult{
		ProfileID: profile,
		Timestamp: at,
		Answered:  answered,
		Correct:   correct,
		Incorrect: answered - correct,
		Elapsed:   elapsed,
	}
}

func TestEmptyProfileYieldsEmptyResults(t *testing.T) {
	ctx := context.Background()
	agg := &Aggregator{
		Results:   scores.NewRepository(scores.NewMemory(), nil),
		FactStats: factStats{},
		Profiles:  profileList{{ID: "new", DisplayName: "New"}},
	}
	assert.Empty(t, agg.Trend(ctx, "new"))
	assert.Empty(t, agg.TrickyTables(ctx, "new", 3))
	board, err := agg.Leaderboard(ctx, MetricAccuracy)
	require.NoError(t, err)
	assert.Empty(t, board)
	assert.Equal(t, 0, agg.Overview(ctx, "new").Tests)
}

func TestTrendIsOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	appendResult(t, repo, testResult("p", day, 10, 5, time.Minute))
	appendResult(t, repo, testResult("p", day.Add(time.Hour), 10, 9, time.Minute))

	trend := (&Aggregator{Results: repo}).Trend(ctx, "p")
	require.Len(t, trend, 2)
	assert.InDelta(t, 0.5, trend[0].Accuracy, 1e-9)
	assert.InDelta(t, 0.9, trend[1].Accuracy, 1e-9)
	assert.True(t, trend[0].Timestamp.Before(trend[1].Timestamp))
}

func TestTrickyTablesRanksLowAccuracyFirst(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	r := testResult("p", day, 20, 10, 2*time.Minute)
	r.TableStats = map[int]model.TableTally{
		4: {Questions: 10, Correct: 2, Incorrect: 8, TotalTime: 50 * time.Second},
		9: {Questions: 10, Correct: 8, Incorrect: 2, TotalTime: 50 * time.Second},
		2: {Questions: 10, Correct: 10, Incorrect: 0, TotalTime: 20 * time.Second},
	}
	appendResult(t, repo, r)

	agg := &Aggregator{Results: repo}
	assert.Equal(t, []int{4, 9}, agg.TrickyTables(ctx, "p", 0))
	assert.Equal(t, []int{4}, agg.TrickyTables(ctx, "p", 1))
}

func TestTrickyTablesFromPracticeSession(t *testing.T) {
	ctx := context.Background()
	tracker := session.New(session.Config{ProfileID: "p", Tables: []int{3}})
	for i := 0; i < 10; i++ {
		require.NoError(t, tracker.RecordAnswer(ctx, model.Fact{Table: 3, Factor: i + 1}, i < 3, 4*time.Second))
	}
	tracker.End()
	assert.InDelta(t, 0.3, tracker.Summary().Accuracy, 1e-9)

	agg := &Aggregator{
		Results:   scores.NewRepository(scores.NewMemory(), nil),
		FactStats: factStats{"p": tracker.History()},
	}
	assert.Equal(t, []int{3}, agg.TrickyTables(ctx, "p", 1))

	ranks := agg.TableDifficulty(ctx, "p")
	require.Len(t, ranks, 1)
	assert.Equal(t, 10, ranks[0].Questions)
	assert.Equal(t, 7, ranks[0].Incorrect)
	assert.Equal(t, 4*time.Second, ranks[0].AvgTime())
}

func TestTrickyTablesMergesSources(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	r := testResult("p", day, 4, 3, time.Minute)
	r.TableStats = map[int]model.TableTally{6: {Questions: 4, Correct: 3, Incorrect: 1, TotalTime: 8 * time.Second}}
	appendResult(t, repo, r)
	facts := factStats{"p": {
		{Table: 6, Factor: 2}: {Fact: model.Fact{Table: 6, Factor: 2}, Attempts: 4, Correct: 1, AvgLatency: 3 * time.Second},
		{Table: 5, Factor: 2}: {Fact: model.Fact{Table: 5, Factor: 2}, Attempts: 2, Correct: 1, AvgLatency: time.Second},
	}}

	ranks := (&Aggregator{Results: repo, FactStats: facts}).TableDifficulty(ctx, "p")
	require.Len(t, ranks, 2)
	assert.Equal(t, 6, ranks[0].Table)
	assert.Equal(t, 8, ranks[0].Questions)
	assert.Equal(t, 4, ranks[0].Incorrect)
	assert.Equal(t, 20*time.Second, ranks[0].TotalTime)
	assert.Equal(t, 5, ranks[1].Table)

	degraded := (&Aggregator{Results: repo, FactStats: brokenFacts{}}).TrickyTables(ctx, "p", 0)
	assert.Equal(t, []int{6}, degraded)
}

func TestLeaderboardMetrics(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	appendResult(t, repo, testResult("a", day, 10, 9, 2*time.Minute))
	appendResult(t, repo, testResult("b", day.Add(time.Hour), 10, 6, time.Minute))
	appendResult(t, repo, testResult("b", day.Add(2*time.Hour), 10, 8, time.Minute))
	profiles := profileList{
		{ID: "a", DisplayName: "Ada", Coins: 5},
		{ID: "b", DisplayName: "Bo", Coins: 40},
		{ID: "c", DisplayName: "Cy", Coins: 99},
	}
	agg := &Aggregator{Results: repo, Profiles: profiles}

	acc, err := agg.Leaderboard(ctx, MetricAccuracy)
	require.NoError(t, err)
	require.Len(t, acc, 2)
	assert.Equal(t, "a", acc[0].ProfileID)
	assert.Equal(t, "Ada", acc[0].DisplayName)
	assert.InDelta(t, 0.7, acc[1].Value, 1e-9)
	assert.InDelta(t, 0.8, acc[1].BestAccuracy, 1e-9)
	assert.Equal(t, 2, acc[1].Tests)

	speed, err := agg.Leaderboard(ctx, MetricSpeed)
	require.NoError(t, err)
	assert.Equal(t, "b", speed[0].ProfileID)
	assert.InDelta(t, 10.0, speed[0].Value, 1e-9)
	assert.InDelta(t, 5.0, speed[1].Value, 1e-9)

	coins, err := agg.Leaderboard(ctx, MetricCoins)
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "b", coins[0].ProfileID)
	assert.InDelta(t, 40, coins[0].Value, 1e-9)

	_, err = agg.Leaderboard(ctx, Metric("streak"))
	assert.True(t, errors.Is(err, ErrUnknownMetric))
}

func TestLeaderboardTiesPreferRecentActivity(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	appendResult(t, repo, testResult("early", day, 10, 7, time.Minute))
	appendResult(t, repo, testResult("late", day.Add(time.Hour), 10, 7, time.Minute))

	board, err := (&Aggregator{Results: repo}).Leaderboard(ctx, MetricAccuracy)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "late", board[0].ProfileID)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	repo := scores.NewRepository(scores.NewMemory(), nil)
	appendResult(t, repo, testResult("p", day, 10, 10, 50*time.Second))
	appendResult(t, repo, testResult("p", day.Add(time.Minute), 10, 10, 50*time.Second))
	appendResult(t, repo, testResult("p", day.Add(2*time.Minute), 10, 6, 100*time.Second))

	ov := (&Aggregator{Results: repo}).Overview(ctx, "p")
	assert.Equal(t, 3, ov.Tests)
	require.NotNil(t, ov.Latest)
	assert.Equal(t, 6, ov.Latest.Correct)
	assert.InDelta(t, 1.0, ov.BestAccuracy, 1e-9)
	assert.InDelta(t, -0.4, ov.AccuracyChange, 1e-9)
	assert.Equal(t, 2, ov.PerfectStreak)
	assert.InDelta(t, 200.0/30.0, ov.AvgQuestionSeconds, 1e-9)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Speed ")
	require.NoError(t, err)
	assert.Equal(t, MetricSpeed, m)
	_, err = ParseMetric("fastest")
	assert.True(t, errors.Is(err, ErrUnknownMetric))
}

func TestRenderers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, Overview{}))
	assert.Contains(t, buf.String(), "No tests yet.")

	buf.Reset()
	require.NoError(t, RenderTrickyTable(&buf, []TableRank{{Table: 7, TableTally: model.TableTally{Questions: 4, Incorrect: 1, TotalTime: 8 * time.Second}}}))
	assert.Contains(t, buf.String(), "25.0%")
	assert.Contains(t, buf.String(), "2.0s")

	buf.Reset()
	entries := []LeaderboardEntry{{ProfileID: "a", DisplayName: "Ada", Value: 0.75, Tests: 2, LastActivity: day}}
	require.NoError(t, RenderLeaderboard(&buf, entries, MetricAccuracy))
	assert.Contains(t, buf.String(), "Accuracy")
	assert.Contains(t, buf.String(), "75.0%")

	buf.Reset()
	points := []TrendPoint{{Timestamp: day, Accuracy: 0.5}, {Timestamp: day.Add(time.Hour), Accuracy: 1}}
	require.NoError(t, RenderTrendWithSize(&buf, points, 2, 40, 4, false))
	assert.Contains(t, buf.String(), "Accuracy Trend")
	assert.Contains(t, buf.String(), "Shared scale.")
}

func TestMovingAverageAndSparkline(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2.5}, MovingAverage([]float64{1, 2, 3}, 2))
	assert.Equal(t, "", Sparkline(nil))
	assert.Len(t, Sparkline([]float64{1, 5, 3}), 3)
}
