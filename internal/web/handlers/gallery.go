package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/kozaktomas/face-login/internal/gallery"
)

// GalleryHandler exposes gallery readiness and fingerprint diagnostics.
type GalleryHandler struct {
	registry *gallery.Registry
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(registry *gallery.Registry) *GalleryHandler {
	return &GalleryHandler{registry: registry}
}

// IdentityResponse describes one gallery identity.
type IdentityResponse struct {
	Name        string     `json:"name"`
	Image       string     `json:"image"`
	Ready       bool       `json:"ready"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	PopulatedAt *time.Time `json:"populated_at,omitempty"`
}

// GalleryResponse is the gallery listing.
type GalleryResponse struct {
	Total      int                `json:"total"`
	Ready      int                `json:"ready"`
	Identities []IdentityResponse `json:"identities"`
}

// FingerprintResponse is the fingerprint of an uploaded image.
type FingerprintResponse struct {
	Length int    `json:"length"`
	Bits   string `json:"bits"`
	Hex    string `json:"hex"`
}

// List returns every registered identity in registration order.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()

	resp := GalleryResponse{
		Total:      len(snapshot),
		Identities: make([]IdentityResponse, len(snapshot)),
	}
	for i, identity := range snapshot {
		item := IdentityResponse{
			Name:  identity.Name,
			Image: identity.ImageRef,
			Ready: identity.Ready(),
		}
		if identity.Ready() {
			resp.Ready++
			item.Fingerprint = identity.Fingerprint.Hex()
			populatedAt := identity.PopulatedAt
			item.PopulatedAt = &populatedAt
		}
		resp.Identities[i] = item
	}

	respondJSON(w, http.StatusOK, resp)
}

// Fingerprint computes the fingerprint of an uploaded image.
func (h *GalleryHandler) Fingerprint(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fp, err := h.registry.Extractor().ExtractBytes(data)
	if err != nil {
		if errors.Is(err, fingerprint.ErrInvalidImage) {
			respondError(w, http.StatusBadRequest, "invalid image")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	respondJSON(w, http.StatusOK, FingerprintResponse{
		Length: fp.Len(),
		Bits:   fp.String(),
		Hex:    fp.Hex(),
	})
}
