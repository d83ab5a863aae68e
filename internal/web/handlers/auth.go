package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/facematch"
	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/kozaktomas/face-login/internal/logger"
	"github.com/kozaktomas/face-login/internal/metrics"
	"github.com/kozaktomas/face-login/internal/web/middleware"
	"go.uber.org/zap"
)

const errNoMatchingFace = "no matching face found"

// AuthHandler handles face login and session endpoints
type AuthHandler struct {
	config         *config.Config
	registry       *gallery.Registry
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, registry *gallery.Registry, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		registry:       registry,
		sessionManager: sm,
	}
}

// Candidate is one ranked gallery identity in a match response
type Candidate struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success      bool        `json:"success"`
	Identity     string      `json:"identity,omitempty"`
	Distance     *int        `json:"distance,omitempty"`
	SessionID    string      `json:"session_id,omitempty"`
	ExpiresAt    string      `json:"expires_at,omitempty"`
	Candidates   []Candidate `json:"candidates,omitempty"`
	GalleryReady bool        `json:"gallery_ready"`
	Error        string      `json:"error,omitempty"`
}

// Match identifies the uploaded face against the gallery and logs the match in
func (h *AuthHandler) Match(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	data, err := readImage(w, r)
	if err != nil {
		metrics.ObserveMatch(metrics.ResultInvalidImage, 0)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	probe, err := h.registry.Extractor().ExtractBytes(data)
	if err != nil {
		if errors.Is(err, fingerprint.ErrInvalidImage) {
			metrics.ObserveMatch(metrics.ResultInvalidImage, 0)
			respondError(w, http.StatusBadRequest, "invalid image")
			return
		}
		metrics.ObserveMatch(metrics.ResultError, 0)
		log.Error("fingerprint extraction failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	snapshot := h.registry.Snapshot()
	galleryReady := allReady(snapshot)

	match, err := facematch.BestMatch(probe, snapshot, h.config.Match.Threshold)
	if err != nil {
		metrics.ObserveMatch(metrics.ResultError, 0)
		log.Error("match failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to match image")
		return
	}
	if match == nil {
		metrics.ObserveMatch(metrics.ResultNoMatch, 0)
		log.Info("face login rejected", zap.Bool("gallery_ready", galleryReady))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success:      false,
			GalleryReady: galleryReady,
			Error:        errNoMatchingFace,
		})
		return
	}

	ranked, err := facematch.Rank(probe, snapshot)
	if err != nil {
		metrics.ObserveMatch(metrics.ResultError, 0)
		respondError(w, http.StatusInternalServerError, "failed to rank candidates")
		return
	}

	session, err := h.sessionManager.CreateSession(match.Identity.Name)
	if err != nil {
		metrics.ObserveMatch(metrics.ResultError, 0)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	metrics.ObserveMatch(metrics.ResultMatch, match.Distance)
	log.Info("face login accepted",
		zap.String("identity", match.Identity.Name),
		zap.Int("distance", match.Distance),
	)

	candidates := make([]Candidate, len(ranked))
	for i, m := range ranked {
		candidates[i] = Candidate{Name: m.Identity.Name, Distance: m.Distance}
	}

	distance := match.Distance
	respondJSON(w, http.StatusOK, LoginResponse{
		Success:      true,
		Identity:     match.Identity.Name,
		Distance:     &distance,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
		Candidates:   candidates,
		GalleryReady: galleryReady,
	})
}

type selectRequest struct {
	Name string `json:"name"`
}

// Select logs in as a named gallery identity without a photo, when enabled
func (h *AuthHandler) Select(w http.ResponseWriter, r *http.Request) {
	if !h.config.Web.AllowSelectLogin {
		respondError(w, http.StatusForbidden, "select login is disabled")
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	identity, ok := h.registry.Find(req.Name)
	if !ok {
		respondError(w, http.StatusNotFound, gallery.ErrUnknownIdentity.Error())
		return
	}

	session, err := h.sessionManager.CreateSession(identity.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	logger.FromContext(r.Context()).Info("select login", zap.String("identity", identity.Name))
	respondJSON(w, http.StatusOK, LoginResponse{
		Success:      true,
		Identity:     identity.Name,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
		GalleryReady: allReady(h.registry.Snapshot()),
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Identity:      session.Identity,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func allReady(identities []gallery.Identity) bool {
	for _, identity := range identities {
		if !identity.Ready() {
			return false
		}
	}
	return len(identities) > 0
}
