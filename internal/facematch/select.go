package facematch

import (
	"fmt"
	"sort"

	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/kozaktomas/face-login/internal/gallery"
)

// BestMatch returns the candidate with the smallest distance to probe if that
// distance is within threshold. A nil Match with a nil error means no match.
// Identities without a fingerprint are skipped; on equal distances the
// candidate listed first wins.
func BestMatch(probe fingerprint.Fingerprint, candidates []gallery.Identity, threshold int) (*Match, error) {
	var best *Match
	for _, identity := range candidates {
		if identity.Fingerprint == nil {
			continue
		}
		d, err := fingerprint.Distance(probe, *identity.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("comparing with %s: %w", identity.Name, err)
		}
		if best == nil || d < best.Distance {
			best = &Match{Identity: identity, Distance: d}
		}
	}

	if best == nil || best.Distance > threshold {
		return nil, nil
	}
	return best, nil
}

// Rank returns every populated candidate ordered by distance to probe.
// Candidates at equal distance keep their gallery order.
func Rank(probe fingerprint.Fingerprint, candidates []gallery.Identity) ([]Match, error) {
	ranked := make([]Match, 0, len(candidates))
	for _, identity := range candidates {
		if identity.Fingerprint == nil {
			continue
		}
		d, err := fingerprint.Distance(probe, *identity.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("comparing with %s: %w", identity.Name, err)
		}
		ranked = append(ranked, Match{Identity: identity, Distance: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked, nil
}
