package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"nil data", http.StatusOK, nil, ""},
		{"empty map", http.StatusCreated, map[string]string{}, "{}\n"},
		{"array", http.StatusOK, []string{"nd", "rinki"}, "[\"nd\",\"rinki\"]\n"},
		{"error status", http.StatusInternalServerError, map[string]int{"n": 1}, "{\"n\":1}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
			if recorder.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusUnauthorized, "no matching face found")

	assertStatusCode(t, recorder, http.StatusUnauthorized)
	assertContentType(t, recorder, "application/json")
	assertJSONError(t, recorder, "no matching face found")
}

func TestReadImage(t *testing.T) {
	png := encodePNG(t, blockImage(8, 8))

	tests := []struct {
		name    string
		request func(t *testing.T) *http.Request
		want    []byte
		wantErr error
	}{
		{
			name: "multipart",
			request: func(t *testing.T) *http.Request {
				return multipartImageRequest(t, "/", "image", png)
			},
			want: png,
		},
		{
			name: "raw body",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest("POST", "/", bytes.NewReader(png))
				req.Header.Set("Content-Type", "application/octet-stream")
				return req
			},
			want: png,
		},
		{
			name: "multipart without image field",
			request: func(t *testing.T) *http.Request {
				return multipartImageRequest(t, "/", "file", png)
			},
			wantErr: errNoImage,
		},
		{
			name: "empty raw body",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest("POST", "/", http.NoBody)
			},
			wantErr: errNoImage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := readImage(httptest.NewRecorder(), tc.request(t))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readImage failed: %v", err)
			}
			if !bytes.Equal(data, tc.want) {
				t.Error("image bytes differ from the upload")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			assertStatusCode(t, recorder, http.StatusOK)

			var result map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got '%s'", result["status"])
			}
		})
	}
}
