package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/session"
)

// TableRank is one table's aggregate across tests and practice.
type TableRank struct {
	Table int
	model.TableTally
}

// tableTallies merges test tallies with practice fact stats.
func (a *Aggregator) tableTallies(ctx context.Context, profileID string) map[int]model.TableTally {
	merged := map[int]model.TableTally{}
	if a.Results != nil {
		for _, r := range a.Results.History(ctx, profileID, 0) {
			for table, tally := range r.TableStats {
				merged[table] = merged[table].Merge(tally)
			}
		}
	}
	if a.FactStats == nil {
		return merged
	}
	facts, err := a.FactStats.LoadFactStats(ctx, profileID)
	if err != nil {
		a.log().Warn("fact stats unavailable; using test results only",
			zap.String("profile", profileID), zap.Error(err))
		return merged
	}
	for _, stat := range facts {
		merged[stat.Fact.Table] = merged[stat.Fact.Table].Merge(FactTally(stat))
	}
	return merged
}

// FactTally expresses a fact stat as a table tally.
func FactTally(stat model.FactStat) model.TableTally {
	stat = stat.Normalize()
	return model.TableTally{
		Questions: stat.Attempts,
		Correct:   stat.Correct,
		Incorrect: stat.Attempts - stat.Correct,
		TotalTime: stat.AvgLatency * time.Duration(stat.Attempts),
	}
}

// TableDifficulty ranks every table with at least one error, hardest first.
func (a *Aggregator) TableDifficulty(ctx context.Context, profileID string) []TableRank {
	tallies := a.tableTallies(ctx, profileID)
	order := session.TrickyTables(tallies)
	out := make([]TableRank, 0, len(order))
	for _, table := range order {
		out = append(out, TableRank{Table: table, TableTally: tallies[table]})
	}
	return out
}

// TrickyTables returns up to topN table numbers ranked by error rate.
// topN <= 0 returns all of them.
func (a *Aggregator) TrickyTables(ctx context.Context, profileID string, topN int) []int {
	ranks := a.TableDifficulty(ctx, profileID)
	if topN > 0 && topN < len(ranks) {
		ranks = ranks[:topN]
	}
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = r.Table
	}
	return out
}
