package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
)

// UpsertFactStat writes one fact's stats, replacing any previous row.
func (s *Store) UpsertFactStat(ctx context.Context, profileID string, stat model.FactStat) error {
	stat = stat.Normalize()
	_, err := s.db.ExecContext(ctx, `INSERT INTO fact_stats
		(profile_id, table_num, factor, attempts, correct, avg_latency_ns, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, table_num, factor) DO UPDATE SET
			attempts = excluded.attempts,
			correct = excluded.correct,
			avg_latency_ns = excluded.avg_latency_ns,
			last_seen = excluded.last_seen`,
		profileID, stat.Fact.Table, stat.Fact.Factor, stat.Attempts, stat.Correct,
		int64(stat.AvgLatency), stat.LastSeen.UTC().Format(time.RFC3339Nano))
	return err
}

// LoadFactStats returns every stored fact stat for a profile.
// Rows that cannot be parsed are skipped and logged.
func (s *Store) LoadFactStats(ctx context.Context, profileID string) (map[model.Fact]model.FactStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_num, factor, attempts, correct, avg_latency_ns, last_seen
		FROM fact_stats WHERE profile_id = ?`, profileID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	out := map[model.Fact]model.FactStat{}
	for rows.Next() {
		var (
			stat    model.FactStat
			latency int64
			seen    string
		)
		if err := rows.Scan(&stat.Fact.Table, &stat.Fact.Factor, &stat.Attempts, &stat.Correct, &latency, &seen); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, seen)
		if err != nil {
			s.log.Warn("skipping fact stat",
				zap.String("profile", profileID),
				zap.Stringer("fact", stat.Fact),
				zap.Error(ErrCorruptRecord))
			continue
		}
		stat.AvgLatency = time.Duration(latency)
		stat.LastSeen = parsed
		out[stat.Fact] = stat.Normalize()
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
