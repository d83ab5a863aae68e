package database

import (
	"context"
)

// FingerprintStore caches reference fingerprints across restarts
type FingerprintStore interface {
	// GetFingerprint returns the cached fingerprint for an identity image, or nil if
	// nothing was stored for this content hash, grid size and filter
	GetFingerprint(ctx context.Context, name, contentHash string, gridSize int, filter string) (*StoredFingerprint, error)
	// SaveFingerprint stores (or replaces) the cached fingerprint for an identity
	SaveFingerprint(ctx context.Context, fp StoredFingerprint) error
}

// MessageStore persists the message board
type MessageStore interface {
	// PostMessage stores a new message
	PostMessage(ctx context.Context, msg Message) error
	// RecentMessages returns up to limit messages, newest first
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}
