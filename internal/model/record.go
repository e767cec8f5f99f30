package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// naiveTimestamp is the offset-less ISO layout older score files use.
const naiveTimestamp = "2006-01-02T15:04:05"

// ResultRecord is the persisted JSON form of a TestResult. Durations are
// Go duration strings so values survive a save/load round trip unchanged.
//
// Records written by the earlier game carry correct, elapsed_seconds and
// time_limit_seconds instead, with a timestamp that has no offset. Result
// accepts both forms.
type ResultRecord struct {
	ID            string                 `json:"id,omitempty"`
	ProfileID     string                 `json:"profile_id"`
	ProfileName   string                 `json:"profile_name,omitempty"`
	Timestamp     string                 `json:"timestamp"`
	Tables        []int                  `json:"tables"`
	QuestionCount int                    `json:"question_count"`
	Answered      int                    `json:"answered"`
	CorrectCount  int                    `json:"correct_count"`
	Incorrect     int                    `json:"incorrect"`
	TimeLimit     string                 `json:"time_limit,omitempty"`
	Duration      string                 `json:"duration"`
	Speed         string                 `json:"speed,omitempty"`
	CoinsEarned   int                    `json:"coins_earned"`
	TableStats    map[string]TallyRecord `json:"table_stats,omitempty"`

	LegacyCorrect    *int     `json:"correct,omitempty"`
	ElapsedSeconds   *float64 `json:"elapsed_seconds,omitempty"`
	TimeLimitSeconds *float64 `json:"time_limit_seconds,omitempty"`
}

// TallyRecord is the persisted form of a TableTally.
type TallyRecord struct {
	Questions Count        `json:"questions"`
	Correct   Count        `json:"correct"`
	Incorrect Count        `json:"incorrect"`
	TotalTime DurationText `json:"total_time"`
}

// Count is a tally that also decodes from whole-valued JSON floats.
type Count int

// UnmarshalJSON accepts 3 and 3.0.
func (c *Count) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || f < 0 {
		return fmt.Errorf("count %v is not a whole number", f)
	}
	*c = Count(f)
	return nil
}

// DurationText is a Go duration string. It also decodes from a JSON number
// of seconds.
type DurationText string

// UnmarshalJSON accepts "1m2.5s" and 62.5.
func (d *DurationText) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DurationText(s)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	dur, err := secondsDuration(secs)
	if err != nil {
		return err
	}
	*d = DurationText(dur.String())
	return nil
}

// NewResultRecord converts a result to its persisted form.
func NewResultRecord(r TestResult) ResultRecord {
	rec := ResultRecord{
		ID:            r.ID,
		ProfileID:     r.ProfileID,
		ProfileName:   r.ProfileName,
		Timestamp:     r.Timestamp.Format(time.RFC3339Nano),
		Tables:        append([]int{}, r.Tables...),
		QuestionCount: r.QuestionCount,
		Answered:      r.Answered,
		CorrectCount:  r.Correct,
		Incorrect:     r.Incorrect,
		Duration:      r.Elapsed.String(),
		Speed:         r.Speed,
		CoinsEarned:   r.CoinsEarned,
	}
	if r.TimeLimit > 0 {
		rec.TimeLimit = r.TimeLimit.String()
	}
	rec.TableStats = EncodeTableStats(r.TableStats)
	return rec
}

// Result converts the record back, validating every field.
func (rec ResultRecord) Result() (TestResult, error) {
	if rec.ProfileID == "" {
		return TestResult{}, errors.New("missing profile_id")
	}
	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return TestResult{}, fmt.Errorf("bad timestamp: %w", err)
	}
	elapsed, err := recordDuration(rec.Duration, rec.ElapsedSeconds)
	if err != nil {
		return TestResult{}, fmt.Errorf("bad duration: %w", err)
	}
	limit, err := recordDuration(rec.TimeLimit, rec.TimeLimitSeconds)
	if err != nil {
		return TestResult{}, fmt.Errorf("bad time_limit: %w", err)
	}
	stats, err := DecodeTableStats(rec.TableStats)
	if err != nil {
		return TestResult{}, err
	}
	correct := rec.CorrectCount
	if correct == 0 && rec.LegacyCorrect != nil {
		correct = *rec.LegacyCorrect
	}
	if correct < 0 || rec.Answered < 0 || correct > rec.Answered {
		return TestResult{}, fmt.Errorf("inconsistent counts: correct %d answered %d", correct, rec.Answered)
	}
	tables := rec.Tables
	if tables == nil {
		tables = []int{}
	}
	return TestResult{
		ID:            rec.ID,
		ProfileID:     rec.ProfileID,
		ProfileName:   rec.ProfileName,
		Timestamp:     ts,
		Tables:        tables,
		QuestionCount: rec.QuestionCount,
		Answered:      rec.Answered,
		Correct:       correct,
		Incorrect:     rec.Incorrect,
		TimeLimit:     limit,
		Elapsed:       elapsed,
		Speed:         rec.Speed,
		CoinsEarned:   rec.CoinsEarned,
		TableStats:    stats,
	}, nil
}

// EncodeTableStats converts tallies to their persisted form.
func EncodeTableStats(stats map[int]TableTally) map[string]TallyRecord {
	if len(stats) == 0 {
		return nil
	}
	out := make(map[string]TallyRecord, len(stats))
	keys := make([]int, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		t := stats[k]
		out[strconv.Itoa(k)] = TallyRecord{
			Questions: Count(t.Questions),
			Correct:   Count(t.Correct),
			Incorrect: Count(t.Incorrect),
			TotalTime: DurationText(t.TotalTime.String()),
		}
	}
	return out
}

// DecodeTableStats parses persisted tallies.
func DecodeTableStats(stats map[string]TallyRecord) (map[int]TableTally, error) {
	out := make(map[int]TableTally, len(stats))
	for k, v := range stats {
		table, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad table key %q: %w", k, err)
		}
		total, err := parseDuration(string(v.TotalTime))
		if err != nil {
			return nil, fmt.Errorf("bad total_time for table %d: %w", table, err)
		}
		out[table] = TableTally{
			Questions: int(v.Questions),
			Correct:   int(v.Correct),
			Incorrect: int(v.Incorrect),
			TotalTime: total,
		}
	}
	return out, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// ParseTimestamp reads an RFC 3339 timestamp, or an offset-less ISO one in
// local time.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return ts, nil
	}
	if naive, nerr := time.ParseInLocation(naiveTimestamp, s, time.Local); nerr == nil {
		return naive, nil
	}
	return time.Time{}, err
}

func recordDuration(text string, seconds *float64) (time.Duration, error) {
	if text == "" && seconds != nil {
		return secondsDuration(*seconds)
	}
	return parseDuration(text)
}

func secondsDuration(secs float64) (time.Duration, error) {
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("bad seconds value %v", secs)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}
