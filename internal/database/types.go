package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/fingerprint"
)

// StoredFingerprint is a cached reference fingerprint. It is only valid for the
// exact image content, grid size and filter it was computed with.
type StoredFingerprint struct {
	Name        string
	ContentHash string // hex SHA-256 of the encoded reference image
	GridSize    int
	Filter      string
	Fingerprint fingerprint.Fingerprint
	ComputedAt  time.Time
}

// Message is a message board entry posted by a logged-in identity.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
