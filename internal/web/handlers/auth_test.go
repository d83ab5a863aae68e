package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-login/internal/web/middleware"
)

func newTestAuthHandler(t *testing.T, populate ...string) (*AuthHandler, *middleware.SessionManager) {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return NewAuthHandler(testConfig(), newTestRegistry(t, populate...), sm), sm
}

func TestAuthHandler_Match_Success(t *testing.T) {
	handler, sm := newTestAuthHandler(t, "nd", "rinki", "jhp")

	req := multipartImageRequest(t, "/api/v1/auth/match", "image", encodePNG(t, stripeImage(32, 32, 4)))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)

	if !response.Success || response.Identity != "rinki" {
		t.Fatalf("expected rinki to be matched, got %+v", response)
	}
	if response.Distance == nil || *response.Distance != 0 {
		t.Errorf("expected distance 0, got %v", response.Distance)
	}
	if !response.GalleryReady {
		t.Error("expected gallery_ready to be true")
	}
	if response.ExpiresAt == "" || response.SessionID == "" {
		t.Error("expected session_id and expires_at to be set")
	}
	if len(response.Candidates) != 3 || response.Candidates[0].Name != "rinki" {
		t.Errorf("expected rinki to rank first among 3 candidates, got %+v", response.Candidates)
	}
	for i := 1; i < len(response.Candidates); i++ {
		if response.Candidates[i].Distance < response.Candidates[i-1].Distance {
			t.Errorf("candidates not sorted by distance: %+v", response.Candidates)
		}
	}

	if session := sm.GetSession(response.SessionID); session == nil || session.Identity != "rinki" {
		t.Error("expected a session for rinki")
	}
	if len(recorder.Result().Cookies()) == 0 {
		t.Error("expected session cookie to be set")
	}
}

func TestAuthHandler_Match_RawBody(t *testing.T) {
	handler, _ := newTestAuthHandler(t, "nd")

	req := httptest.NewRequest("POST", "/api/v1/auth/match", bytes.NewReader(encodePNG(t, stripeImage(32, 32, 2))))
	req.Header.Set("Content-Type", "image/png")
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)
	if response.Identity != "nd" {
		t.Errorf("expected nd, got %q", response.Identity)
	}
	if response.GalleryReady {
		t.Error("gallery_ready should be false while identities are pending")
	}
}

func TestAuthHandler_Match_NoMatch(t *testing.T) {
	tests := []struct {
		name      string
		populate  []string
		threshold int
	}{
		{"empty gallery", nil, 256},
		{"above threshold", []string{"nd", "rinki", "jhp"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestAuthHandler(t, tc.populate...)
			handler.config.Match.Threshold = tc.threshold

			req := multipartImageRequest(t, "/api/v1/auth/match", "image", encodePNG(t, blockImage(32, 32)))
			recorder := httptest.NewRecorder()

			handler.Match(recorder, req)

			assertStatusCode(t, recorder, http.StatusUnauthorized)
			assertJSONError(t, recorder, "no matching face found")

			var response LoginResponse
			parseJSONResponse(t, recorder, &response)
			if response.Success {
				t.Error("expected success to be false")
			}
			if len(recorder.Result().Cookies()) != 0 {
				t.Error("no cookie should be set on rejection")
			}
		})
	}
}

func TestAuthHandler_Match_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		request func(t *testing.T) *http.Request
		wantErr string
	}{
		{
			name: "invalid image",
			request: func(t *testing.T) *http.Request {
				return multipartImageRequest(t, "/api/v1/auth/match", "image", []byte("not an image"))
			},
			wantErr: "invalid image",
		},
		{
			name: "missing field",
			request: func(t *testing.T) *http.Request {
				return multipartImageRequest(t, "/api/v1/auth/match", "photo", encodePNG(t, blockImage(8, 8)))
			},
			wantErr: "no image provided",
		},
		{
			name: "empty body",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest("POST", "/api/v1/auth/match", http.NoBody)
			},
			wantErr: "no image provided",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestAuthHandler(t, "nd")
			recorder := httptest.NewRecorder()

			handler.Match(recorder, tc.request(t))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tc.wantErr)
		})
	}
}

func TestAuthHandler_Select(t *testing.T) {
	tests := []struct {
		name       string
		allow      bool
		body       string
		wantStatus int
	}{
		{"disabled", false, `{"name": "nd"}`, http.StatusForbidden},
		{"known identity", true, `{"name": "nd"}`, http.StatusOK},
		{"normalized name", true, `{"name": "  RINKI "}`, http.StatusOK},
		{"unknown identity", true, `{"name": "nobody"}`, http.StatusNotFound},
		{"missing name", true, `{"name": ""}`, http.StatusBadRequest},
		{"invalid json", true, `{invalid`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestAuthHandler(t)
			handler.config.Web.AllowSelectLogin = tc.allow

			req := httptest.NewRequest("POST", "/api/v1/auth/select", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()

			handler.Select(recorder, req)

			assertStatusCode(t, recorder, tc.wantStatus)
			if tc.wantStatus == http.StatusOK {
				var response LoginResponse
				parseJSONResponse(t, recorder, &response)
				if !response.Success || response.SessionID == "" {
					t.Errorf("expected a successful login, got %+v", response)
				}
			}
		})
	}
}

func TestAuthHandler_StatusAndLogout(t *testing.T) {
	handler, sm := newTestAuthHandler(t)
	session, err := sm.CreateSession("jhp")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Authenticated status.
	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder := httptest.NewRecorder()
	handler.Status(recorder, req)

	var status StatusResponse
	parseJSONResponse(t, recorder, &status)
	if !status.Authenticated || status.Identity != "jhp" {
		t.Errorf("expected authenticated as jhp, got %+v", status)
	}

	// Logout.
	req = httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	handler.Logout(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	// Unauthenticated status.
	req = httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	handler.Status(recorder, req)

	status = StatusResponse{}
	parseJSONResponse(t, recorder, &status)
	if status.Authenticated || status.Identity != "" {
		t.Errorf("expected unauthenticated after logout, got %+v", status)
	}
}
