package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/fingerprint"
)

// FingerprintRepository provides PostgreSQL-backed reference fingerprint caching
type FingerprintRepository struct {
	pool *Pool
}

// NewFingerprintRepository creates a new PostgreSQL fingerprint repository
func NewFingerprintRepository(pool *Pool) *FingerprintRepository {
	return &FingerprintRepository{pool: pool}
}

// GetFingerprint returns the cached fingerprint, or nil when the stored entry is
// missing or was computed from different content or settings
func (r *FingerprintRepository) GetFingerprint(ctx context.Context, name, contentHash string, gridSize int, filter string) (*database.StoredFingerprint, error) {
	query := `
		SELECT name, content_hash, grid_size, filter, bits, computed_at
		FROM gallery_fingerprints
		WHERE name = $1 AND content_hash = $2 AND grid_size = $3 AND filter = $4
	`

	var (
		stored database.StoredFingerprint
		bits   string
	)
	err := r.pool.QueryRow(ctx, query, name, contentHash, gridSize, filter).Scan(
		&stored.Name,
		&stored.ContentHash,
		&stored.GridSize,
		&stored.Filter,
		&bits,
		&stored.ComputedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fingerprint: %w", err)
	}

	fp, err := fingerprint.Parse(bits)
	if err != nil {
		return nil, fmt.Errorf("decode fingerprint for %s: %w", name, err)
	}
	stored.Fingerprint = fp
	return &stored, nil
}

// SaveFingerprint stores a fingerprint, replacing any previous entry for the identity
func (r *FingerprintRepository) SaveFingerprint(ctx context.Context, fp database.StoredFingerprint) error {
	query := `
		INSERT INTO gallery_fingerprints (name, content_hash, grid_size, filter, bits, computed_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		ON CONFLICT (name) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			grid_size = EXCLUDED.grid_size,
			filter = EXCLUDED.filter,
			bits = EXCLUDED.bits,
			computed_at = EXCLUDED.computed_at
	`

	var computedAt sql.NullTime
	if !fp.ComputedAt.IsZero() {
		computedAt = sql.NullTime{Time: fp.ComputedAt, Valid: true}
	}

	_, err := r.pool.Exec(ctx, query, fp.Name, fp.ContentHash, fp.GridSize, fp.Filter, fp.Fingerprint.String(), computedAt)
	if err != nil {
		return fmt.Errorf("save fingerprint: %w", err)
	}
	return nil
}
