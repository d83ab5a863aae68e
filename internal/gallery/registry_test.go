package gallery

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/kozaktomas/face-login/internal/fingerprint"
)

var testSeeds = []Seed{
	{Name: "nd", Image: "users/nd.JPG"},
	{Name: "rinki", Image: "users/rinki.JPG"},
	{Name: "jhp", Image: "users/jhp.JPG"},
}

func TestRegisterAndSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(testSeeds); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != len(testSeeds) {
		t.Fatalf("expected %d identities, got %d", len(testSeeds), len(snap))
	}
	for i, identity := range snap {
		if identity.Name != testSeeds[i].Name {
			t.Errorf("identity %d = %s; want %s (registration order)", i, identity.Name, testSeeds[i].Name)
		}
		if identity.ImageRef != testSeeds[i].Image {
			t.Errorf("identity %d image = %s; want %s", i, identity.ImageRef, testSeeds[i].Image)
		}
		if identity.Ready() {
			t.Errorf("identity %s should not have a fingerprint yet", identity.Name)
		}
	}
	if got := r.Pending(); len(got) != 3 {
		t.Errorf("expected 3 pending identities, got %v", got)
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	tests := []struct {
		name     string
		existing []Seed
		seeds    []Seed
	}{
		{"within batch", nil, []Seed{{Name: "nd"}, {Name: "rinki"}, {Name: "nd"}}},
		{"against existing", []Seed{{Name: "nd"}}, []Seed{{Name: "jhp"}, {Name: "nd"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry(nil)
			if err := r.Register(tc.existing); err != nil {
				t.Fatalf("seeding failed: %v", err)
			}

			err := r.Register(tc.seeds)
			if !errors.Is(err, ErrDuplicateName) {
				t.Fatalf("expected ErrDuplicateName, got %v", err)
			}
			if r.Len() != len(tc.existing) {
				t.Errorf("failed Register must not add identities: have %d, want %d", r.Len(), len(tc.existing))
			}
		})
	}
}

func TestRegisterInvalidName(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register([]Seed{{Name: "nd"}, {Name: ""}}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("failed Register must not add identities, have %d", r.Len())
	}
}

func TestRegisterDistinctNames(t *testing.T) {
	tests := []struct {
		name  string
		seeds []Seed
	}{
		{"case", []Seed{{Name: "nd"}, {Name: "ND"}}},
		{"diacritics", []Seed{{Name: "Jiří"}, {Name: "jiri"}}},
		{"separators", []Seed{{Name: "n d"}, {Name: "n-d"}, {Name: "n_d"}}},
		{"punctuation only", []Seed{{Name: "-"}, {Name: "__"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry(nil)
			if err := r.Register(tc.seeds); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if r.Len() != len(tc.seeds) {
				t.Fatalf("expected %d identities, got %d", len(tc.seeds), r.Len())
			}
			for _, seed := range tc.seeds {
				identity, ok := r.Lookup(seed.Name)
				if !ok || identity.Name != seed.Name {
					t.Errorf("Lookup(%q) = %q, %v", seed.Name, identity.Name, ok)
				}
			}
		})
	}
}

func TestPopulateExactNameOnly(t *testing.T) {
	r := NewRegistry(fingerprint.DefaultExtractor())
	if err := r.Register([]Seed{{Name: "nd"}, {Name: "ND"}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.Populate("N_D", stripeImage(16, 16, 2)); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity for N_D, got %v", err)
	}
	if err := r.Populate("ND", stripeImage(16, 16, 2)); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}

	if upper, _ := r.Lookup("ND"); !upper.Ready() {
		t.Error("ND should be populated")
	}
	if lower, _ := r.Lookup("nd"); lower.Ready() {
		t.Error("nd must stay pending when ND is populated")
	}
	if pending := r.Pending(); len(pending) != 1 || pending[0] != "nd" {
		t.Errorf("expected only nd pending, got %v", pending)
	}
}

func TestPopulate(t *testing.T) {
	r := newTestRegistry(t)

	img := stripeImage(32, 32, 4)
	if err := r.Populate("rinki", img); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}

	want, err := r.Extractor().Extract(img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	identity, ok := r.Lookup("rinki")
	if !ok {
		t.Fatal("Lookup failed")
	}
	if !identity.Ready() || !identity.Fingerprint.Equal(want) {
		t.Error("fingerprint should equal the extraction of the populated image")
	}
	if identity.PopulatedAt.IsZero() {
		t.Error("PopulatedAt should be set")
	}

	// Other identities are untouched.
	if other, _ := r.Lookup("nd"); other.Ready() {
		t.Error("nd should still be pending")
	}
}

func TestPopulateOverwrites(t *testing.T) {
	r := newTestRegistry(t)

	first := stripeImage(32, 32, 2)
	second := stripeImage(32, 32, 8)

	if err := r.Populate("nd", first); err != nil {
		t.Fatalf("first Populate failed: %v", err)
	}
	if err := r.Populate("nd", second); err != nil {
		t.Fatalf("second Populate failed: %v", err)
	}

	want, _ := r.Extractor().Extract(second)
	identity, _ := r.Lookup("nd")
	if !identity.Fingerprint.Equal(want) {
		t.Error("fingerprint should equal the extraction of the second image only")
	}
}

func TestPopulateErrors(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Populate("nobody", stripeImage(8, 8, 2)); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if err := r.Populate("nd", empty); !errors.Is(err, fingerprint.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
	if identity, _ := r.Lookup("nd"); identity.Ready() {
		t.Error("failed Populate must leave the fingerprint absent")
	}
}

func TestSetLengthMismatch(t *testing.T) {
	r := newTestRegistry(t)

	short := fingerprint.FromBits(make([]bool, 64))
	if err := r.Set("nd", short); !errors.Is(err, fingerprint.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if err := r.Set("nobody", fingerprint.FromBits(make([]bool, 256))); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestLookupIsExact(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register([]Seed{{Name: "Jan Novák", Image: "jan.jpg"}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Lookup("jan-novak"); ok {
		t.Error("Lookup must not match a differently spelled name")
	}
	if _, ok := r.Lookup("Jan Novák"); !ok {
		t.Error("Lookup should match the registered name")
	}
}

func TestFind(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register([]Seed{
		{Name: "Jan Novák"},
		{Name: "nd"},
		{Name: "ND"},
		{Name: "Petr"},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"jan-novak", "Jan Novák", true},
		{"  JAN   NOVAK ", "Jan Novák", true},
		{"ND", "ND", true}, // exact match wins
		{"nd", "nd", true}, // exact match wins
		{"n_d", "", false}, // ambiguous between nd and ND
		{"petr", "Petr", true},
		{"nobody", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			identity, ok := r.Find(tc.query)
			if ok != tc.wantOK || identity.Name != tc.want {
				t.Errorf("Find(%q) = %q, %v; want %q, %v", tc.query, identity.Name, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := newTestRegistry(t)

	snap := r.Snapshot()
	snap[0].Name = "changed"

	if r.Snapshot()[0].Name != "nd" {
		t.Error("modifying a snapshot must not affect the registry")
	}
}

func TestConcurrentPopulateAndSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	seeds := make([]Seed, 20)
	for i := range seeds {
		seeds[i] = Seed{Name: fmt.Sprintf("user%d", i)}
	}
	if err := r.Register(seeds); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := range seeds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Populate(seeds[i].Name, stripeImage(24, 24, i%5+1)); err != nil {
				t.Errorf("Populate failed: %v", err)
			}
		}(i)
	}

	for range 50 {
		for _, identity := range r.Snapshot() {
			if identity.Fingerprint != nil && identity.Fingerprint.Len() != 256 {
				t.Fatalf("observed partial fingerprint of length %d", identity.Fingerprint.Len())
			}
		}
	}
	wg.Wait()

	if pending := r.Pending(); len(pending) != 0 {
		t.Errorf("expected every identity populated, pending: %v", pending)
	}
}

// Helper functions

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(fingerprint.DefaultExtractor())
	if err := r.Register(testSeeds); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return r
}

// stripeImage returns an image with vertical black and white stripes of the given width.
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
