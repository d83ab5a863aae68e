package metrics

import (
	"testing"

	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMatch(t *testing.T) {
	before := testutil.ToFloat64(matchTotal.WithLabelValues(ResultMatch))
	beforeNoMatch := testutil.ToFloat64(matchTotal.WithLabelValues(ResultNoMatch))

	ObserveMatch(ResultMatch, 12)
	ObserveMatch(ResultNoMatch, 0)

	if got := testutil.ToFloat64(matchTotal.WithLabelValues(ResultMatch)); got != before+1 {
		t.Errorf("match counter = %f; want %f", got, before+1)
	}
	if got := testutil.ToFloat64(matchTotal.WithLabelValues(ResultNoMatch)); got != beforeNoMatch+1 {
		t.Errorf("no_match counter = %f; want %f", got, beforeNoMatch+1)
	}
	if testutil.CollectAndCount(matchDistance) != 1 {
		t.Error("expected match_distance to be collected")
	}
}

func TestObserveGallery(t *testing.T) {
	fp := fingerprint.FromBits(make([]bool, 256))
	ObserveGallery([]gallery.Identity{
		{Name: "nd", Fingerprint: &fp},
		{Name: "rinki"},
		{Name: "jhp"},
	})

	if got := testutil.ToFloat64(galleryIdentities.WithLabelValues("ready")); got != 1 {
		t.Errorf("ready = %f; want 1", got)
	}
	if got := testutil.ToFloat64(galleryIdentities.WithLabelValues("pending")); got != 2 {
		t.Errorf("pending = %f; want 2", got)
	}
}
