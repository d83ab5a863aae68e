package database

import (
	"errors"
	"sync"
)

var (
	backendMu        sync.RWMutex
	fingerprintStore func() FingerprintStore
	messageStore     func() MessageStore
	backendName      string
)

// RegisterBackend registers repository constructors for the active storage backend.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, fps func() FingerprintStore, msgs func() MessageStore) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = name
	fingerprintStore = fps
	messageStore = msgs
}

// BackendName returns the name of the registered backend, or an empty string.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

// GetFingerprintStore returns the fingerprint cache of the registered backend.
func GetFingerprintStore() (FingerprintStore, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if fingerprintStore == nil {
		return nil, errors.New("no storage backend registered")
	}
	return fingerprintStore(), nil
}

// GetMessageStore returns the message board store of the registered backend.
func GetMessageStore() (MessageStore, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if messageStore == nil {
		return nil, errors.New("no storage backend registered")
	}
	return messageStore(), nil
}
