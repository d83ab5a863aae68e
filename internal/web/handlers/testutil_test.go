package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/gallery"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Match: config.MatchConfig{
			Threshold: 100,
			GridSize:  16,
			Filter:    "bilinear",
		},
	}
}

// testSeeds mirrors the default gallery; each identity gets a distinct stripe width.
var testSeeds = []gallery.Seed{
	{Name: "nd", Image: "users/nd.JPG"},
	{Name: "rinki", Image: "users/rinki.JPG"},
	{Name: "jhp", Image: "users/jhp.JPG"},
}

var testStripes = map[string]int{"nd": 2, "rinki": 4, "jhp": 8}

// newTestRegistry registers the test seeds and populates the named identities
func newTestRegistry(t *testing.T, populate ...string) *gallery.Registry {
	t.Helper()
	r := gallery.NewRegistry(nil)
	if err := r.Register(testSeeds); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	for _, name := range populate {
		if err := r.Populate(name, stripeImage(32, 32, testStripes[name])); err != nil {
			t.Fatalf("Populate(%s) failed: %v", name, err)
		}
	}
	return r
}

// stripeImage returns an image with vertical black and white stripes of the given width
func stripeImage(width, height, stripe int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			if (x/stripe)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// blockImage returns an image with a bright upper-left quadrant
func blockImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			if x < width/2 && y < height/2 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// multipartImageRequest builds a multipart/form-data request with the image in the given field
func multipartImageRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "capture.png")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(data)
	if err := writer.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
