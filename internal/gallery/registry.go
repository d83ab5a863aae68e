// Package gallery holds the known identities and their reference fingerprints.
package gallery

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/face-login/internal/fingerprint"
)

var (
	// ErrDuplicateName is returned when two identities share a name.
	ErrDuplicateName = errors.New("duplicate identity name")
	// ErrInvalidName is returned for an empty identity name.
	ErrInvalidName = errors.New("invalid identity name")
	// ErrUnknownIdentity is returned when populating a name that was never registered.
	ErrUnknownIdentity = errors.New("unknown identity")
)

// Seed describes an identity before its fingerprint is known.
type Seed struct {
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
}

// Identity is a registered person. Fingerprint is nil until the reference image has been processed.
type Identity struct {
	Name        string                   `json:"name"`
	ImageRef    string                   `json:"image"`
	Fingerprint *fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	PopulatedAt time.Time                `json:"populated_at,omitzero"`
}

// Ready reports whether the identity's fingerprint has been computed.
func (i Identity) Ready() bool {
	return i.Fingerprint != nil
}

// Registry is the set of known identities, kept in registration order.
// Fingerprints are replaced whole under the write lock, so readers never see a partial update.
type Registry struct {
	extractor *fingerprint.Extractor

	mu      sync.RWMutex
	entries []Identity
	index   map[string]int // name -> position in entries
}

// NewRegistry creates an empty registry that fingerprints images with extractor.
func NewRegistry(extractor *fingerprint.Extractor) *Registry {
	if extractor == nil {
		extractor = fingerprint.DefaultExtractor()
	}
	return &Registry{
		extractor: extractor,
		index:     make(map[string]int),
	}
}

// Extractor returns the extractor used by Populate.
func (r *Registry) Extractor() *fingerprint.Extractor {
	return r.extractor
}

// Register adds identities without fingerprints. Either all seeds are added or none.
func (r *Registry) Register(seeds []Seed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if s.Name == "" {
			return ErrInvalidName
		}
		if _, ok := r.index[s.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, s.Name)
		}
		if _, ok := pending[s.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, s.Name)
		}
		pending[s.Name] = struct{}{}
	}

	for _, s := range seeds {
		r.index[s.Name] = len(r.entries)
		r.entries = append(r.entries, Identity{Name: s.Name, ImageRef: s.Image})
	}
	return nil
}

// Populate fingerprints img and stores the result for the named identity,
// replacing any earlier fingerprint.
func (r *Registry) Populate(name string, img image.Image) error {
	if _, ok := r.Lookup(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}
	fp, err := r.extractor.Extract(img)
	if err != nil {
		return fmt.Errorf("populating %s: %w", name, err)
	}
	return r.Set(name, fp)
}

// Set stores a precomputed fingerprint for the named identity.
// The fingerprint must have the extractor's length.
func (r *Registry) Set(name string, fp fingerprint.Fingerprint) error {
	if fp.Len() != r.extractor.Bits() {
		return fmt.Errorf("%w: %s has %d bits, registry uses %d",
			fingerprint.ErrLengthMismatch, name, fp.Len(), r.extractor.Bits())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}
	r.entries[i].Fingerprint = &fp
	r.entries[i].PopulatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of all identities in registration order.
func (r *Registry) Snapshot() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identity, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the identity registered under exactly name.
func (r *Registry) Lookup(name string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Identity{}, false
	}
	return r.entries[i], true
}

// Find resolves a name typed by a person. An exact match wins; otherwise the
// name is compared after NormalizeName and must match exactly one identity.
func (r *Registry) Find(name string) (Identity, bool) {
	if identity, ok := r.Lookup(name); ok {
		return identity, true
	}
	key := NormalizeName(name)
	if key == "" {
		return Identity{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	found := -1
	for i, e := range r.entries {
		if NormalizeName(e.Name) != key {
			continue
		}
		if found >= 0 {
			return Identity{}, false
		}
		found = i
	}
	if found < 0 {
		return Identity{}, false
	}
	return r.entries[found], true
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Pending returns the names of identities that still lack a fingerprint.
func (r *Registry) Pending() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, e := range r.entries {
		if e.Fingerprint == nil {
			names = append(names, e.Name)
		}
	}
	return names
}
