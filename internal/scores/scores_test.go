package scores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tafel/internal/model"
)

type failingBackend struct {
	*Memory
	failAppend bool
	failRead   bool
}

var errDisk = errors.New("disk full")

func (f *failingBackend) AppendResult(ctx context.Context, r model.TestResult) error {
	if f.failAppend {
		return errDisk
	}
	return f.Memory.AppendResult(ctx, r)
}

func (f *failingBackend) ListResults(ctx context.Context, id string, limit int) ([]model.TestResult, error) {
	if f.failRead {
		return nil, errDisk
	}
	return f.Memory.ListResults(ctx, id, limit)
}

func (f *failingBackend) LatestResults(ctx context.Context) (map[string]model.TestResult, error) {
	if f.failRead {
		return nil, errDisk
	}
	return f.Memory.LatestResults(ctx)
}

func result(profile string, at time.Time, correct int) model.TestResult {
	return model.TestResult{
		ProfileID: profile,
		Timestamp: at,
		Tables:    []int{2},
		Answered:  10,
		Correct:   correct,
		Incorrect: 10 - correct,
		Elapsed:   time.Minute,
	}
}

func TestAppendThenHistoryReturnsItFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemory(), nil)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, result("p1", base, 4))
	require.NoError(t, err)
	_, err = repo.Append(ctx, result("p1", base.Add(time.Minute), 9))
	require.NoError(t, err)

	history := repo.History(ctx, "p1", 0)
	require.Len(t, history, 2)
	assert.Equal(t, 9, history[0].Correct)

	one := repo.History(ctx, "p1", 1)
	require.Len(t, one, 1)
	assert.Equal(t, 9, one[0].Correct)
}

func TestAppendClampsEarlierTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemory(), nil)
	late := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, result("p1", late, 5))
	require.NoError(t, err)
	stored, err := repo.Append(ctx, result("p1", late.Add(-time.Hour), 6))
	require.NoError(t, err)
	assert.True(t, stored.Timestamp.Equal(late))

	other, err := repo.Append(ctx, result("p2", late.Add(-time.Hour), 6))
	require.NoError(t, err)
	assert.True(t, other.Timestamp.Equal(late.Add(-time.Hour)))
}

func TestAppendFailureWrapsPersistence(t *testing.T) {
	repo := NewRepository(&failingBackend{Memory: NewMemory(), failAppend: true}, nil)
	_, err := repo.Append(context.Background(), result("p1", time.Now(), 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Error(t, repo.Notice())

	repo.ClearNotice()
	assert.NoError(t, repo.Notice())

	_, err = repo.Append(context.Background(), result("", time.Now(), 5))
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestReadsDegradeToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(&failingBackend{Memory: NewMemory(), failRead: true}, nil)

	history := repo.History(ctx, "p1", 0)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	latest := repo.AllProfilesLatest(ctx)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)
	assert.Error(t, repo.Notice())
}

func TestAllProfilesLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemory(), nil)
	at := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	for i, p := range []string{"a", "b", "a"} {
		_, err := repo.Append(ctx, result(p, at.Add(time.Duration(i)*time.Minute), i+1))
		require.NoError(t, err)
	}
	latest := repo.AllProfilesLatest(ctx)
	require.Len(t, latest, 2)
	assert.Equal(t, 3, latest["a"].Correct)
	assert.Equal(t, 2, latest["b"].Correct)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	r := result("p1", time.Now(), 5)
	r.TableStats = map[int]model.TableTally{2: {Questions: 1}}
	require.NoError(t, m.AppendResult(ctx, r))

	got, err := m.ListResults(ctx, "p1", 0)
	require.NoError(t, err)
	got[0].Tables[0] = 99
	got[0].TableStats[2] = model.TableTally{Questions: 42}

	again, err := m.ListResults(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, again[0].Tables)
	assert.Equal(t, 1, again[0].TableStats[2].Questions)
}
