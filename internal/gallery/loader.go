package gallery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-login/internal/constants"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/fingerprint"
	"go.uber.org/zap"
)

// Fetcher retrieves the encoded bytes of a reference image.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// SourceFetcher reads image references that are either http(s) URLs or
// file paths. Relative paths are resolved against BaseDir.
type SourceFetcher struct {
	BaseDir string
	Client  *http.Client
}

// NewSourceFetcher creates a fetcher rooted at baseDir.
func NewSourceFetcher(baseDir string) *SourceFetcher {
	return &SourceFetcher{
		BaseDir: baseDir,
		Client:  &http.Client{Timeout: constants.FetchTimeout},
	}
}

// Fetch reads the image behind ref, limited to constants.MaxImageBytes.
func (f *SourceFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return f.fetchURL(ctx, ref)
	}

	path := ref
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	file, err := os.Open(path) //nolint:gosec // references come from the operator's gallery file
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return readLimited(file)
}

func (f *SourceFetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > constants.MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", constants.MaxImageBytes)
	}
	return data, nil
}

// LoadReport summarizes one pass over the gallery.
type LoadReport struct {
	Loaded   []string         // fingerprints computed from the image
	Cached   []string         // fingerprints restored from the cache
	Failed   map[string]error // identities left without a fingerprint
	Duration time.Duration
}

// Ready returns how many identities received a fingerprint.
func (r LoadReport) Ready() int {
	return len(r.Loaded) + len(r.Cached)
}

// Loader fetches reference images and populates a registry, one identity at a time.
// A failure for one identity never affects the others.
type Loader struct {
	registry    *Registry
	fetcher     Fetcher
	cache       database.FingerprintStore
	concurrency int
	logger      *zap.Logger
	onProgress  func(name string, err error)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCache enables the fingerprint cache.
func WithCache(cache database.FingerprintStore) LoaderOption {
	return func(l *Loader) { l.cache = cache }
}

// WithConcurrency sets the number of parallel fetches.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after each identity is processed.
func WithProgress(fn func(name string, err error)) LoaderOption {
	return func(l *Loader) { l.onProgress = fn }
}

// NewLoader creates a loader for registry.
func NewLoader(registry *Registry, fetcher Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		registry:    registry,
		fetcher:     fetcher,
		concurrency: constants.DefaultLoaderConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start runs Load in the background. The returned channel receives the report
// once every identity has been processed and is then closed.
func (l *Loader) Start(ctx context.Context) <-chan LoadReport {
	done := make(chan LoadReport, 1)
	go func() {
		defer close(done)
		done <- l.Load(ctx)
	}()
	return done
}

// Load processes every identity of the registry that has no fingerprint yet.
func (l *Loader) Load(ctx context.Context) LoadReport {
	start := time.Now()
	report := LoadReport{Failed: make(map[string]error)}

	var pending []Identity
	for _, identity := range l.registry.Snapshot() {
		if !identity.Ready() {
			pending = append(pending, identity)
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, l.concurrency)

	for _, identity := range pending {
		wg.Add(1)
		go func(identity Identity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			cached, err := l.loadOne(ctx, identity)

			mu.Lock()
			switch {
			case err != nil:
				report.Failed[identity.Name] = err
			case cached:
				report.Cached = append(report.Cached, identity.Name)
			default:
				report.Loaded = append(report.Loaded, identity.Name)
			}
			mu.Unlock()

			if err != nil {
				l.logger.Warn("failed to load reference image",
					zap.String("identity", identity.Name),
					zap.String("image", identity.ImageRef),
					zap.Error(err))
			} else {
				l.logger.Debug("reference fingerprint ready",
					zap.String("identity", identity.Name),
					zap.Bool("cached", cached))
			}
			if l.onProgress != nil {
				l.onProgress(identity.Name, err)
			}
		}(identity)
	}
	wg.Wait()

	report.Duration = time.Since(start)
	l.logger.Info("gallery loaded",
		zap.Int("ready", report.Ready()),
		zap.Int("cached", len(report.Cached)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration))
	return report
}

// loadOne fetches, fingerprints and stores a single identity. It reports whether
// the fingerprint came from the cache.
func (l *Loader) loadOne(ctx context.Context, identity Identity) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("loading cancelled: %w", err)
	}

	data, err := l.fetcher.Fetch(ctx, identity.ImageRef)
	if err != nil {
		return false, err
	}

	extractor := l.registry.Extractor()
	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	if l.cache != nil {
		stored, err := l.cache.GetFingerprint(ctx, identity.Name, contentHash, extractor.GridSize(), string(extractor.Filter()))
		if err != nil {
			l.logger.Warn("fingerprint cache lookup failed", zap.String("identity", identity.Name), zap.Error(err))
		} else if stored != nil {
			if err := l.registry.Set(identity.Name, stored.Fingerprint); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	img, err := fingerprint.Decode(data)
	if err != nil {
		return false, err
	}
	if err := l.registry.Populate(identity.Name, img); err != nil {
		return false, err
	}

	if l.cache != nil {
		current, _ := l.registry.Lookup(identity.Name)
		if current.Fingerprint != nil {
			err := l.cache.SaveFingerprint(ctx, database.StoredFingerprint{
				Name:        identity.Name,
				ContentHash: contentHash,
				GridSize:    extractor.GridSize(),
				Filter:      string(extractor.Filter()),
				Fingerprint: *current.Fingerprint,
				ComputedAt:  current.PopulatedAt,
			})
			if err != nil {
				l.logger.Warn("failed to cache fingerprint", zap.String("identity", identity.Name), zap.Error(err))
			}
		}
	}
	return false, nil
}
