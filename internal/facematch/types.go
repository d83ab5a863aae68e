// Package facematch selects the gallery identity closest to a probe fingerprint.
// The scan is linear: galleries hold tens of identities, so no index is kept.
package facematch

import "github.com/kozaktomas/face-login/internal/gallery"

// Match is an accepted (or ranked) gallery candidate.
type Match struct {
	Identity gallery.Identity `json:"identity"`
	Distance int              `json:"distance"`
}
