package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/constants"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/logger"
	"github.com/kozaktomas/face-login/internal/web/middleware"
	"go.uber.org/zap"
)

// MessagesHandler serves the message board.
type MessagesHandler struct {
	store database.MessageStore
}

// NewMessagesHandler creates a new message board handler.
func NewMessagesHandler(store database.MessageStore) *MessagesHandler {
	return &MessagesHandler{store: store}
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// List returns the most recent messages, newest first.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.RecentMessages(r.Context(), constants.MessageBoardLimit)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list messages", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []database.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// Post adds a message authored by the logged-in identity.
func (h *MessagesHandler) Post(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(text) > constants.MaxMessageLength || !utf8.ValidString(text) {
		respondError(w, http.StatusBadRequest, "text is too long or not valid UTF-8")
		return
	}

	msg := database.Message{
		ID:        uuid.New(),
		Name:      session.Identity,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.PostMessage(r.Context(), msg); err != nil {
		logger.FromContext(r.Context()).Error("failed to post message", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}
