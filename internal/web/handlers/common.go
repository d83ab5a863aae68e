package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/kozaktomas/face-login/internal/constants"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var errNoImage = errors.New("no image provided")

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readImage returns the uploaded image bytes: the multipart field "image",
// or the raw request body for any other content type.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(constants.MaxImageBytes); err != nil {
			return nil, fmt.Errorf("parsing multipart form: %w", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, errNoImage
			}
			return nil, fmt.Errorf("reading image field: %w", err)
		}
		defer file.Close()
		return readAllNonEmpty(file)
	}

	return readAllNonEmpty(r.Body)
}

func readAllNonEmpty(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	if len(data) > constants.MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", constants.MaxImageBytes)
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
