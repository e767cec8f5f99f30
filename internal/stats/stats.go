// Package stats aggregates test and practice history into progress figures
// and renders them as text.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tafel/internal/model"
)

const sparkChars = " .:-=+*#%@"

// TestMetrics returns accuracy and answered questions per minute for a result.
func TestMetrics(r model.TestResult) (accuracy, perMinute float64) {
	accuracy = r.Accuracy()
	if r.Elapsed > 0 {
		perMinute = float64(r.Answered) / r.Elapsed.Minutes()
	}
	return accuracy, perMinute
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMaxSingle(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// TrendAccuracies returns the accuracy of each point as a percentage.
func TrendAccuracies(points []TrendPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Accuracy * 100
	}
	return out
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderSummary prints the headline figures of an overview.
func RenderSummary(w io.Writer, ov Overview) error {
	if ov.Tests == 0 {
		_, err := fmt.Fprintln(w, "No tests yet.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", ov.Tests),
		fmt.Sprintf("Avg Accuracy: %s", percent(ov.AverageAccuracy)),
		fmt.Sprintf("Best Accuracy: %s", percent(ov.BestAccuracy)),
		fmt.Sprintf("Change: %+.1f%%", ov.AccuracyChange*100),
		fmt.Sprintf("Perfect Streak: %d", ov.PerfectStreak),
		fmt.Sprintf("Avg Time/Question: %.1fs", ov.AvgQuestionSeconds),
	}
	if ov.Latest != nil {
		lines = append(lines, fmt.Sprintf("Latest: %d/%d on %s, %d coins",
			ov.Latest.Correct, ov.Latest.Answered,
			ov.Latest.Timestamp.Local().Format("2006-01-02 15:04"), ov.Latest.CoinsEarned))
	}
	for _, line := range append(lines, "") {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the accuracy trend with an auto-sized plot.
func RenderTrend(w io.Writer, points []TrendPoint, window int) error {
	return RenderTrendWithSize(w, points, window, 0, 10, false)
}

// RenderTrendWithSize prints the accuracy trend sized to a given total width.
func RenderTrendWithSize(w io.Writer, points []TrendPoint, window, totalWidth, height int, useColor bool) error {
	if len(points) == 0 {
		return nil
	}
	raw := TrendAccuracies(points)
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	series := []Series{{Name: "Accuracy", Values: raw, Fixed: true, Min: 0, Max: 100}}
	if window > 1 && len(raw) > 1 {
		series = append(series, Series{
			Name:   fmt.Sprintf("Average of %d", window),
			Values: MovingAverage(raw, window),
			Fixed:  true,
			Min:    0,
			Max:    100,
		})
	}
	return PlotSeriesWithColor(w, "Accuracy Trend", series, width, height, useColor)
}

// RenderTrickyTable prints per-table difficulty, hardest first.
func RenderTrickyTable(w io.Writer, ranks []TableRank) error {
	if len(ranks) == 0 {
		_, err := fmt.Fprintln(w, "No tricky tables.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Tricky Tables"); err != nil {
		return err
	}
	headers := []string{"Table", "Error Rate", "Avg Time", "Questions", "Incorrect"}
	rows := make([][]string, 0, len(ranks))
	for _, r := range ranks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Table),
			percent(r.ErrorRate()),
			seconds(r.AvgTime()),
			fmt.Sprintf("%d", r.Questions),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true})
}

// FormatMetric renders a leaderboard value for its metric.
func FormatMetric(metric Metric, v float64) string {
	switch metric {
	case MetricAccuracy:
		return percent(v)
	case MetricSpeed:
		return fmt.Sprintf("%.1f/min", v)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// LeaderboardRows formats entries as table cells.
func LeaderboardRows(entries []LeaderboardEntry, metric Metric) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.DisplayName,
			FormatMetric(metric, e.Value),
			fmt.Sprintf("%d", e.Tests),
			percent(e.BestAccuracy),
			e.LastActivity.Local().Format("2006-01-02"),
		})
	}
	return rows
}

// LeaderboardHeaders returns column titles for LeaderboardRows.
func LeaderboardHeaders(metric Metric) []string {
	title := string(metric)
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return []string{"#", "Player", title, "Tests", "Best", "Last Played"}
}

// RenderLeaderboard prints the ranked entries.
func RenderLeaderboard(w io.Writer, entries []LeaderboardEntry, metric Metric) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No players with tests yet.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Leaderboard (%s)\n", metric); err != nil {
		return err
	}
	return writeTable(w, LeaderboardHeaders(metric), LeaderboardRows(entries, metric),
		map[int]bool{0: true, 2: true, 3: true, 4: true})
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
