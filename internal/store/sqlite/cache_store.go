package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tiletagger/internal/models"
	"tiletagger/internal/store"
)

// --- Tag Cache ---
//
// Keys are the SHA-256 hex digest of a tile's PNG bytes, so identical tiles
// hit the cache across tilesets and re-runs. Entries expire after the
// configured TTL; PruneCache also evicts the oldest rows above MaxEntries.

func (s *StoreImpl) GetCachedTags(ctx context.Context, key string) ([]models.Tag, bool, error) {
	query := `SELECT tags, created_at FROM tag_cache WHERE key = ?`
	var blob string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, key).Scan(&blob, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read tag cache for key %s: %w", key, err)
	}

	if s.cacheTTLSeconds > 0 && time.Since(createdAt) > time.Duration(s.cacheTTLSeconds)*time.Second {
		// Expired; drop it so the next Put refreshes the timestamp.
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tag_cache WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("failed to evict expired cache entry %s: %w", key, err)
		}
		return nil, false, nil
	}

	var tags []models.Tag
	if err := json.Unmarshal([]byte(blob), &tags); err != nil {
		return nil, false, fmt.Errorf("corrupt tag cache entry for key %s: %w", key, err)
	}
	return tags, true, nil
}

func (s *StoreImpl) PutCachedTags(ctx context.Context, key string, tags []models.Tag) error {
	blob, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags for cache key %s: %w", key, err)
	}
	query := `
		INSERT INTO tag_cache (key, tags, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET tags = excluded.tags, created_at = excluded.created_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(blob), time.Now()); err != nil {
		return fmt.Errorf("failed to write tag cache for key %s: %w", key, err)
	}
	return nil
}

func (s *StoreImpl) PruneCache(ctx context.Context) error {
	if s.cacheTTLSeconds > 0 {
		cutoff := time.Now().Add(-time.Duration(s.cacheTTLSeconds) * time.Second)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tag_cache WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("failed to prune expired cache entries: %w", err)
		}
	}
	if s.cacheMaxEntries > 0 {
		query := `
			DELETE FROM tag_cache WHERE key IN (
				SELECT key FROM tag_cache ORDER BY created_at DESC LIMIT -1 OFFSET ?
			)`
		if _, err := s.db.ExecContext(ctx, query, s.cacheMaxEntries); err != nil {
			return fmt.Errorf("failed to prune oversize cache: %w", err)
		}
	}
	return nil
}

// Ensure StoreImpl satisfies the CacheStore interface
var _ store.CacheStore = (*StoreImpl)(nil)
