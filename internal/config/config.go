package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-login/internal/constants"
	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/kozaktomas/face-login/internal/gallery"
	"gopkg.in/yaml.v3"
)

//go:embed gallery.yaml
var defaultGalleryYAML []byte

type Config struct {
	Gallery  GalleryConfig
	Match    MatchConfig
	Database DatabaseConfig
	Web      WebConfig
	Log      LogConfig
}

type GalleryConfig struct {
	File        string // YAML seed file; empty uses the embedded default gallery
	Dir         string // base directory for relative image references
	Concurrency int    // parallel reference image loads
}

type galleryFile struct {
	Identities []gallery.Seed `yaml:"identities"`
}

type MatchConfig struct {
	Threshold int    // maximum accepted Hamming distance
	GridSize  int    // hash grid resolution N
	Filter    string // resampling filter name
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, in-memory storage when empty)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host             string
	Port             int
	SessionSecret    string
	AllowSelectLogin bool     // allow logging in by picking a known identity without a photo
	AllowedOrigins   []string // CORS whitelist; localhost is always allowed
}

type LogConfig struct {
	Env   string // prod, local, dev or docker
	Level string // optional override: debug, info, warn, error
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envString returns the environment variable or a default when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// envBool parses common boolean spellings; anything else yields the default.
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Gallery: GalleryConfig{
			File:        os.Getenv("GALLERY_FILE"),
			Dir:         envString("GALLERY_DIR", "public"),
			Concurrency: envInt("GALLERY_CONCURRENCY", constants.DefaultLoaderConcurrency),
		},
		Match: MatchConfig{
			Threshold: envInt("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			GridSize:  envInt("HASH_GRID_SIZE", fingerprint.DefaultGridSize),
			Filter:    envString("HASH_FILTER", string(fingerprint.DefaultFilter)),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host:             envString("WEB_HOST", "0.0.0.0"),
			Port:             envInt("WEB_PORT", 8080),
			SessionSecret:    os.Getenv("WEB_SESSION_SECRET"),
			AllowSelectLogin: envBool("WEB_ALLOW_SELECT_LOGIN", false),
			AllowedOrigins:   envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Env:   envString("LOG_ENV", "local"),
			Level: os.Getenv("LOG_LEVEL"),
		},
	}
}

// Validate checks that the matching settings are usable together.
func (c *Config) Validate() error {
	if c.Match.GridSize < 1 {
		return fmt.Errorf("HASH_GRID_SIZE must be at least 1, got %d", c.Match.GridSize)
	}
	if _, err := fingerprint.ParseFilter(c.Match.Filter); err != nil {
		return fmt.Errorf("HASH_FILTER: %w", err)
	}
	maxDistance := c.Match.GridSize * c.Match.GridSize
	if c.Match.Threshold < 0 || c.Match.Threshold > maxDistance {
		return fmt.Errorf("MATCH_THRESHOLD must be between 0 and %d, got %d", maxDistance, c.Match.Threshold)
	}
	return nil
}

// Extractor builds the fingerprint extractor described by the match settings.
func (c *MatchConfig) Extractor() (*fingerprint.Extractor, error) {
	extractor, err := fingerprint.NewExtractor(c.GridSize, fingerprint.Filter(c.Filter))
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}
	return extractor, nil
}

// Seeds returns the gallery seed list from File, or the embedded default gallery.
func (c *GalleryConfig) Seeds() ([]gallery.Seed, error) {
	data := defaultGalleryYAML
	if c.File != "" {
		fileData, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("reading gallery file: %w", err)
		}
		data = fileData
	}
	return parseSeeds(data)
}

func parseSeeds(data []byte) ([]gallery.Seed, error) {
	var file galleryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing gallery file: %w", err)
	}
	if len(file.Identities) == 0 {
		return nil, errors.New("gallery file defines no identities")
	}
	return file.Identities, nil
}
