// Package memory provides in-process implementations of the database interfaces.
// It is the default backend when no DATABASE_URL is configured; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-login/internal/constants"
	"github.com/kozaktomas/face-login/internal/database"
)

// FingerprintStore keeps cached fingerprints in a map keyed by identity name.
type FingerprintStore struct {
	mu           sync.RWMutex
	fingerprints map[string]database.StoredFingerprint
}

// NewFingerprintStore creates an empty fingerprint cache.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{fingerprints: make(map[string]database.StoredFingerprint)}
}

// GetFingerprint returns the cached entry if it was computed from the same content and settings.
func (s *FingerprintStore) GetFingerprint(_ context.Context, name, contentHash string, gridSize int, filter string) (*database.StoredFingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.fingerprints[name]
	if !ok || fp.ContentHash != contentHash || fp.GridSize != gridSize || fp.Filter != filter {
		return nil, nil
	}
	return &fp, nil
}

// SaveFingerprint replaces the cached entry for fp.Name.
func (s *FingerprintStore) SaveFingerprint(_ context.Context, fp database.StoredFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[fp.Name] = fp
	return nil
}

// MessageStore keeps the newest messages, up to a fixed capacity.
type MessageStore struct {
	mu       sync.RWMutex
	messages []database.Message // newest first
	capacity int
}

// NewMessageStore creates a message store holding at most capacity messages.
// A non-positive capacity falls back to constants.MessageBoardLimit.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = constants.MessageBoardLimit
	}
	return &MessageStore{capacity: capacity}
}

// PostMessage prepends msg and drops the oldest messages beyond capacity.
func (s *MessageStore) PostMessage(_ context.Context, msg database.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append([]database.Message{msg}, s.messages...)
	if len(s.messages) > s.capacity {
		s.messages = s.messages[:s.capacity]
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *MessageStore) RecentMessages(_ context.Context, limit int) ([]database.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.messages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]database.Message, n)
	copy(out, s.messages[:n])
	return out, nil
}

// Register installs fresh in-memory stores as the active database backend.
func Register() {
	fps := NewFingerprintStore()
	msgs := NewMessageStore(constants.MessageBoardLimit)
	database.RegisterBackend("memory",
		func() database.FingerprintStore { return fps },
		func() database.MessageStore { return msgs },
	)
}
