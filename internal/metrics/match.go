package metrics

import (
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "face_login"

// Match outcome labels.
const (
	ResultMatch        = "match"
	ResultNoMatch      = "no_match"
	ResultInvalidImage = "invalid_image"
	ResultError        = "error"
)

var (
	matchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_total",
			Help:      "Face match attempts by outcome",
		},
		[]string{"result"},
	)

	matchDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_distance",
			Help:      "Hamming distance of the best candidate for accepted matches",
			Buckets:   prometheus.LinearBuckets(0, 16, 17),
		},
	)

	galleryIdentities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gallery_identities",
			Help:      "Registered gallery identities by fingerprint state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(matchTotal)
	prometheus.MustRegister(matchDistance)
	prometheus.MustRegister(galleryIdentities)
}

// ObserveMatch records one match attempt. distance is only observed for accepted matches.
func ObserveMatch(result string, distance int) {
	matchTotal.WithLabelValues(result).Inc()
	if result == ResultMatch {
		matchDistance.Observe(float64(distance))
	}
}

// ObserveGallery updates the readiness gauge from a registry snapshot.
func ObserveGallery(identities []gallery.Identity) {
	var ready int
	for _, identity := range identities {
		if identity.Ready() {
			ready++
		}
	}
	galleryIdentities.WithLabelValues("ready").Set(float64(ready))
	galleryIdentities.WithLabelValues("pending").Set(float64(len(identities) - ready))
}
