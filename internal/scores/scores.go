// Package scores keeps the history of finished tests over a pluggable backend.
package scores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
)

// ErrPersistence wraps every failed write.
var ErrPersistence = errors.New("scores: persistence failed")

// Backend stores test results.
type Backend interface {
	AppendResult(ctx context.Context, result model.TestResult) error
	// ListResults returns results newest first; limit <= 0 means all.
	ListResults(ctx context.Context, profileID string, limit int) ([]model.TestResult, error)
	LatestResults(ctx context.Context) (map[string]model.TestResult, error)
}

// Repository appends results and serves history without failing readers.
type Repository struct {
	backend Backend
	log     *zap.Logger
	notice  error
}

// NewRepository wraps a backend.
func NewRepository(backend Backend, logger *zap.Logger) *Repository {
	return &Repository{backend: backend, log: logging.OrNop(logger)}
}

// Append stores a result. Its timestamp is raised to the profile's latest
// stored timestamp if it would otherwise go backwards.
func (r *Repository) Append(ctx context.Context, result model.TestResult) (model.TestResult, error) {
	if result.ProfileID == "" {
		return result, fmt.Errorf("%w: missing profile id", ErrPersistence)
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	latest, err := r.backend.ListResults(ctx, result.ProfileID, 1)
	if err != nil {
		r.log.Warn("could not read latest result before append",
			zap.String("profile", result.ProfileID), zap.Error(err))
	} else if len(latest) > 0 && result.Timestamp.Before(latest[0].Timestamp) {
		result.Timestamp = latest[0].Timestamp
	}
	if err := r.backend.AppendResult(ctx, result); err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
		r.notice = err
		r.log.Error("failed to append test result",
			zap.String("profile", result.ProfileID), zap.Error(err))
		return result, err
	}
	return result, nil
}

// History returns a profile's results newest first. A backend failure is
// logged and yields an empty slice.
func (r *Repository) History(ctx context.Context, profileID string, limit int) []model.TestResult {
	results, err := r.backend.ListResults(ctx, profileID, limit)
	if err != nil {
		r.notice = fmt.Errorf("history unavailable: %w", err)
		r.log.Warn("failed to load history", zap.String("profile", profileID), zap.Error(err))
		return []model.TestResult{}
	}
	if results == nil {
		return []model.TestResult{}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// AllProfilesLatest returns the newest result per profile.
func (r *Repository) AllProfilesLatest(ctx context.Context) map[string]model.TestResult {
	latest, err := r.backend.LatestResults(ctx)
	if err != nil {
		r.notice = fmt.Errorf("history unavailable: %w", err)
		r.log.Warn("failed to load latest results", zap.Error(err))
		return map[string]model.TestResult{}
	}
	if latest == nil {
		return map[string]model.TestResult{}
	}
	return latest
}

// Notice returns the last degraded-read or failed-write error, if any.
func (r *Repository) Notice() error {
	return r.notice
}

// ClearNotice forgets the last notice once it has been shown.
func (r *Repository) ClearNotice() {
	r.notice = nil
}
