package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tafel/internal/model"
)

// CreateProfile inserts a new profile with a generated id.
func (s *Store) CreateProfile(ctx context.Context, name, avatar string) (model.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Profile{}, fmt.Errorf("profile name must not be empty")
	}
	p := model.Profile{
		ID:          uuid.NewString(),
		DisplayName: name,
		Avatar:      strings.TrimSpace(avatar),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, display_name, avatar, coins, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.DisplayName, p.Avatar, p.Coins, p.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// EnsureProfile creates a profile with a fixed id unless it already exists.
// It reports whether the profile was created.
func (s *Store) EnsureProfile(ctx context.Context, id, name string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("profile id must not be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (id, display_name, avatar, coins, created_at) VALUES (?, ?, '', 0, ?)`,
		id, name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProfiles returns all profiles in creation order.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, avatar, coins, created_at FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile loads one profile.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, avatar, coins, created_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return p, err
}

// FindProfile resolves a profile by id or case-insensitive display name.
func (s *Store) FindProfile(ctx context.Context, key string) (model.Profile, error) {
	p, err := s.GetProfile(ctx, key)
	if err == nil || !errors.Is(err, ErrProfileNotFound) {
		return p, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, avatar, coins, created_at FROM profiles
		 WHERE lower(display_name) = lower(?) ORDER BY created_at ASC LIMIT 1`, strings.TrimSpace(key))
	p, err = scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, key)
	}
	return p, err
}

// UpdateCoins adds delta to the coin balance, never going below zero.
func (s *Store) UpdateCoins(ctx context.Context, id string, delta int) (model.Profile, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET coins = MAX(0, coins + ?) WHERE id = ?`, delta, id)
	if err != nil {
		return model.Profile{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Profile{}, err
	}
	if n == 0 {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return s.GetProfile(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (model.Profile, error) {
	var p model.Profile
	var created string
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Avatar, &p.Coins, &created); err != nil {
		return model.Profile{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%w: profile %s created_at: %v", ErrCorruptRecord, p.ID, err)
	}
	p.CreatedAt = parsed
	return p, nil
}
