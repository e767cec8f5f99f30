// Package scorefile stores test results in a single JSON file keyed by profile id.
package scorefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
)

// ErrCorruptRecord marks a record that could not be decoded.
var ErrCorruptRecord = errors.New("scorefile: corrupt record")

// writeMu serializes writers in this process across File values.
var writeMu sync.Mutex

// File is a JSON score file backend.
type File struct {
	path string
	log  *zap.Logger
}

// Open returns a backend for path. The file is created on first append.
func Open(path string, logger *zap.Logger) (*File, error) {
	if path == "" {
		return nil, errors.New("score file path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create score file directory: %w", err)
	}
	return &File{path: path, log: logging.OrNop(logger)}, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

type rawFile map[string][]json.RawMessage

// readRaw loads the file. A missing file is empty; an unparseable file is
// logged and treated as empty.
func (f *File) readRaw() (rawFile, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return rawFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read score file: %w", err)
	}
	raw := rawFile{}
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		f.log.Warn("score file unreadable; starting with empty history",
			zap.String("path", f.path), zap.Error(err))
		return rawFile{}, nil
	}
	return raw, nil
}

func (f *File) decode(profileID string, msg json.RawMessage) (model.TestResult, error) {
	var rec model.ResultRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return model.TestResult{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.ProfileID == "" {
		rec.ProfileID = profileID
	}
	result, err := rec.Result()
	if err != nil {
		return model.TestResult{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if result.ID == "" {
		result.ID = recordID(result.ProfileID, rec.Timestamp)
	}
	return result, nil
}

// recordID derives an id for records saved without one, so importing the
// same file twice finds the earlier rows.
func recordID(profileID, timestamp string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(profileID+"\x00"+timestamp)).String()
}

// profileResults decodes one profile's records in append order, skipping bad ones.
func (f *File) profileResults(profileID string, msgs []json.RawMessage) []model.TestResult {
	out := make([]model.TestResult, 0, len(msgs))
	for i, msg := range msgs {
		result, err := f.decode(profileID, msg)
		if err != nil {
			f.log.Warn("skipping score record",
				zap.String("profile", profileID), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, result)
	}
	return out
}

// AppendResult adds a result and atomically replaces the file.
func (f *File) AppendResult(_ context.Context, result model.TestResult) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	raw, err := f.readRaw()
	if err != nil {
		return err
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	msg, err := json.Marshal(model.NewResultRecord(result))
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	raw[result.ProfileID] = append(raw[result.ProfileID], msg)
	return f.write(raw)
}

func (f *File) write(raw rawFile) (err error) {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode score file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rerr := os.Remove(tmpName); rerr != nil {
				// Best-effort cleanup of the temp file.
				_ = rerr
			}
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			_ = cerr
		}
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			_ = cerr
		}
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace score file: %w", err)
	}
	return nil
}

// ListResults returns a profile's results newest first; limit <= 0 means all.
func (f *File) ListResults(_ context.Context, profileID string, limit int) ([]model.TestResult, error) {
	raw, err := f.readRaw()
	if err != nil {
		return nil, err
	}
	results := f.profileResults(profileID, raw[profileID])
	n := len(results)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.TestResult, 0, n)
	for i := len(results) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, results[i])
	}
	return out, nil
}

// LatestResults returns the newest readable result of every profile.
func (f *File) LatestResults(_ context.Context) (map[string]model.TestResult, error) {
	raw, err := f.readRaw()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.TestResult, len(raw))
	for id, msgs := range raw {
		results := f.profileResults(id, msgs)
		if len(results) == 0 {
			continue
		}
		out[id] = results[len(results)-1]
	}
	return out, nil
}

// All returns every readable result grouped by profile in append order.
func (f *File) All(_ context.Context) (map[string][]model.TestResult, error) {
	raw, err := f.readRaw()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]model.TestResult, len(raw))
	for id, msgs := range raw {
		if results := f.profileResults(id, msgs); len(results) > 0 {
			out[id] = results
		}
	}
	return out, nil
}
