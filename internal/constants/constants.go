// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Matching constants
const (
	// DefaultMatchThreshold is the default maximum Hamming distance accepted as a match.
	// With 256-bit fingerprints this tolerates a large share of differing cells.
	DefaultMatchThreshold = 100
)

// Gallery loading constants
const (
	// DefaultLoaderConcurrency is the default number of reference images fetched in parallel
	DefaultLoaderConcurrency = 4

	// MaxImageBytes is the maximum size of a reference or uploaded image
	MaxImageBytes = 20 << 20

	// FetchTimeout bounds a single reference image download
	FetchTimeout = 30 * time.Second
)

// Handler constants
const (
	// MaxUploadSize is the maximum accepted multipart form size
	MaxUploadSize = 32 << 20

	// MessageBoardLimit is the number of most recent messages kept and returned
	MessageBoardLimit = 100

	// MaxMessageLength is the maximum message length in bytes
	MaxMessageLength = 2000
)
