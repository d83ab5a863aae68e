package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	sessionCookieName      = "face_login_session"
	sessionDuration        = 24 * time.Hour
	sessionCleanupInterval = 15 * time.Minute
	repoTimeout            = 5 * time.Second
)

// Session represents a logged-in identity
type Session struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"` // gallery display name
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a session
type StoredSession struct {
	ID        string
	Identity  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions across restarts
type SessionRepository interface {
	Save(ctx context.Context, id, identity string, createdAt, expiresAt time.Time) error
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation
type SessionManager struct {
	secret   []byte
	sessions map[string]*Session
	mu       sync.RWMutex
	repo     SessionRepository
	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a new session manager. repo may be nil, in which
// case sessions only live in memory.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "face-login-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
		repo:     repo,
		logger:   zap.NewNop(),
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// SetLogger replaces the no-op logger used for repository failures.
func (sm *SessionManager) SetLogger(logger *zap.Logger) {
	if logger != nil {
		sm.logger = logger
	}
}

// Stop terminates the background cleanup goroutine.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.cleanupExpired()
		}
	}
}

func (sm *SessionManager) cleanupExpired() {
	now := time.Now()
	sm.mu.Lock()
	for id, session := range sm.sessions {
		if now.After(session.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	if sm.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	count, err := sm.repo.DeleteExpired(ctx)
	if err != nil {
		sm.logger.Warn("failed to delete expired sessions", zap.Error(err))
		return
	}
	if count > 0 {
		sm.logger.Debug("deleted expired sessions", zap.Int64("count", count))
	}
}

// CreateSession creates a new session for a gallery identity
func (sm *SessionManager) CreateSession(identity string) (*Session, error) {
	// Generate session ID
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	sessionID := base64.URLEncoding.EncodeToString(idBytes)

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		Identity:  identity,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if err := sm.repo.Save(ctx, session.ID, session.Identity, session.CreatedAt, session.ExpiresAt); err != nil {
			sm.logger.Warn("failed to persist session", zap.Error(err))
		}
	}

	return session, nil
}

// GetSession retrieves a session by ID, falling back to the repository on a miss
func (sm *SessionManager) GetSession(sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		sm.logger.Warn("failed to load session", zap.Error(err))
		return nil
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil
	}

	session = &Session{
		ID:        stored.ID,
		Identity:  stored.Identity,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			sm.logger.Warn("failed to delete session", zap.Error(err))
		}
	}
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	// Sign the session ID
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a request
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	// Try cookie first
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		parts := strings.SplitN(cookie.Value, ".", 2)
		if len(parts) == 2 {
			sessionID := parts[0]
			signature := parts[1]
			if sm.verifySignature(sessionID, signature) {
				if session := sm.GetSession(sessionID); session != nil {
					return session
				}
			}
		}
	}

	// Try Authorization header
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		sessionID := strings.TrimPrefix(authHeader, "Bearer ")
		if session := sm.GetSession(sessionID); session != nil {
			return session
		}
	}

	return nil
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
