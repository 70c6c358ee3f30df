package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetCachedPayload returns an unexpired cached provider payload, or nil when none
// is stored.
func (s *Store) GetCachedPayload(ctx context.Context, provider, key string) ([]byte, *time.Time, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, nil, err
	}

	provider, key = strings.TrimSpace(provider), strings.TrimSpace(key)
	if provider == "" || key == "" {
		return nil, nil, errors.New("cache provider and key are required")
	}

	var (
		payload   []byte
		expiresAt int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT payload, expires_at
		FROM provider_cache
		WHERE provider = ? AND cache_key = ? AND expires_at > ?
	`, provider, key, s.now().Unix())

	if err := row.Scan(&payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("fetch cached payload: %w", err)
	}

	expires := time.Unix(expiresAt, 0).UTC()
	return payload, &expires, nil
}

// SetCachedPayload stores a provider payload with a TTL. A non-positive TTL is a
// no-op.
func (s *Store) SetCachedPayload(ctx context.Context, provider, key string, payload []byte, ttl time.Duration) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	if ttl <= 0 || payload == nil {
		return nil
	}

	provider, key = strings.TrimSpace(provider), strings.TrimSpace(key)
	if provider == "" || key == "" {
		return errors.New("cache provider and key are required")
	}

	now := s.now()
	expires := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO provider_cache (provider, cache_key, payload, checked_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider, cache_key) DO UPDATE SET
			payload = excluded.payload,
			checked_at = excluded.checked_at,
			expires_at = excluded.expires_at
	`, provider, key, payload, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached payload: %w", err)
	}

	return nil
}

// ClearCache deletes cached payloads. An empty provider clears every provider.
func (s *Store) ClearCache(ctx context.Context, provider string) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	var result sql.Result
	if provider = strings.TrimSpace(provider); provider == "" {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM provider_cache`)
	} else {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM provider_cache WHERE provider = ?`, provider)
	}
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return result.RowsAffected()
}

// PurgeExpiredCache removes entries past their expiry.
func (s *Store) PurgeExpiredCache(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM provider_cache WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return result.RowsAffected()
}
