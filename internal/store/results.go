package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
)

const resultColumns = `id, profile_id, profile_name, ts, tables, question_count, answered,
	correct, incorrect, time_limit, duration, speed, coins_earned, table_stats`

// AppendResult stores a finished test result.
func (s *Store) AppendResult(ctx context.Context, result model.TestResult) error {
	_, err := s.insertResult(ctx, "INSERT", result)
	return err
}

// ImportResult stores a result unless one with the same id already exists.
// It reports whether a row was written.
func (s *Store) ImportResult(ctx context.Context, result model.TestResult) (bool, error) {
	return s.insertResult(ctx, "INSERT OR IGNORE", result)
}

func (s *Store) insertResult(ctx context.Context, verb string, result model.TestResult) (bool, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	rec := model.NewResultRecord(result)
	tables, err := json.Marshal(rec.Tables)
	if err != nil {
		return false, fmt.Errorf("failed to encode tables: %w", err)
	}
	stats, err := json.Marshal(rec.TableStats)
	if err != nil {
		return false, fmt.Errorf("failed to encode table stats: %w", err)
	}
	res, err := s.db.ExecContext(ctx, verb+` INTO test_results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProfileID, rec.ProfileName, rec.Timestamp, string(tables),
		rec.QuestionCount, rec.Answered, rec.CorrectCount, rec.Incorrect,
		rec.TimeLimit, rec.Duration, rec.Speed, rec.CoinsEarned, string(stats))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListResults returns a profile's results newest first. A limit <= 0 returns all.
func (s *Store) ListResults(ctx context.Context, profileID string, limit int) ([]model.TestResult, error) {
	query := `SELECT ` + resultColumns + ` FROM test_results WHERE profile_id = ? ORDER BY seq DESC`
	args := []any{profileID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryResults(ctx, query, args...)
}

// LatestResults returns the newest result of every profile that has one.
func (s *Store) LatestResults(ctx context.Context) (map[string]model.TestResult, error) {
	results, err := s.queryResults(ctx, `SELECT `+resultColumns+` FROM test_results
		WHERE seq IN (SELECT MAX(seq) FROM test_results GROUP BY profile_id)`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.TestResult, len(results))
	for _, r := range results {
		out[r.ProfileID] = r
	}
	return out, nil
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]model.TestResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var out []model.TestResult
	for rows.Next() {
		var (
			rec    model.ResultRecord
			tables string
			stats  string
		)
		if err := rows.Scan(&rec.ID, &rec.ProfileID, &rec.ProfileName, &rec.Timestamp, &tables,
			&rec.QuestionCount, &rec.Answered, &rec.CorrectCount, &rec.Incorrect,
			&rec.TimeLimit, &rec.Duration, &rec.Speed, &rec.CoinsEarned, &stats); err != nil {
			return nil, err
		}
		result, err := decodeResult(rec, tables, stats)
		if err != nil {
			s.log.Warn("skipping test result",
				zap.String("id", rec.ID),
				zap.String("profile", rec.ProfileID),
				zap.Error(err))
			continue
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeResult(rec model.ResultRecord, tables, stats string) (model.TestResult, error) {
	if err := json.Unmarshal([]byte(tables), &rec.Tables); err != nil {
		return model.TestResult{}, fmt.Errorf("%w: tables: %v", ErrCorruptRecord, err)
	}
	if err := json.Unmarshal([]byte(stats), &rec.TableStats); err != nil {
		return model.TestResult{}, fmt.Errorf("%w: table_stats: %v", ErrCorruptRecord, err)
	}
	result, err := rec.Result()
	if err != nil {
		return model.TestResult{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return result, nil
}
