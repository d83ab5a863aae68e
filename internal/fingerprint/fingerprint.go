package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultGridSize is the hash grid resolution N; fingerprints have N*N bits.
const DefaultGridSize = 16

// Filter names the resampling kernel used to shrink images to the hash grid.
type Filter string

const (
	FilterNearest        Filter = "nearest"
	FilterApproxBiLinear Filter = "approx-bilinear"
	FilterBiLinear       Filter = "bilinear"
	FilterCatmullRom     Filter = "catmull-rom"
)

// DefaultFilter is used when no filter is configured.
const DefaultFilter = FilterBiLinear

var scalers = map[Filter]draw.Scaler{
	FilterNearest:        draw.NearestNeighbor,
	FilterApproxBiLinear: draw.ApproxBiLinear,
	FilterBiLinear:       draw.BiLinear,
	FilterCatmullRom:     draw.CatmullRom,
}

// ParseFilter validates a filter name. An empty name selects DefaultFilter.
func ParseFilter(name string) (Filter, error) {
	if name == "" {
		return DefaultFilter, nil
	}
	f := Filter(name)
	if _, ok := scalers[f]; !ok {
		return "", fmt.Errorf("unknown resampling filter %q", name)
	}
	return f, nil
}

// Extractor computes average-hash fingerprints on a fixed grid with a fixed filter.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	size   int
	filter Filter
	scaler draw.Scaler
}

// NewExtractor creates an extractor for a size x size grid.
func NewExtractor(size int, filter Filter) (*Extractor, error) {
	if size < 1 {
		return nil, fmt.Errorf("grid size must be at least 1, got %d", size)
	}
	f, err := ParseFilter(string(filter))
	if err != nil {
		return nil, err
	}
	return &Extractor{size: size, filter: f, scaler: scalers[f]}, nil
}

// DefaultExtractor returns an extractor with the default grid size and filter.
func DefaultExtractor() *Extractor {
	return &Extractor{size: DefaultGridSize, filter: DefaultFilter, scaler: scalers[DefaultFilter]}
}

// GridSize returns N.
func (e *Extractor) GridSize() int {
	return e.size
}

// Filter returns the configured resampling filter.
func (e *Extractor) Filter() Filter {
	return e.filter
}

// Bits returns the length of every fingerprint this extractor produces.
func (e *Extractor) Bits() int {
	return e.size * e.size
}

// Extract computes the average hash of img:
//  1. shrink to an N x N grid,
//  2. luma per cell is the rounded mean of R, G and B (alpha is ignored),
//  3. each bit is 1 when the cell luma is strictly above the grid mean.
//
// Bits are emitted row-major from the top-left cell. img is only read.
func (e *Extractor) Extract(img image.Image) (Fingerprint, error) {
	if img == nil {
		return Fingerprint{}, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Fingerprint{}, fmt.Errorf("%w: empty image %dx%d", ErrInvalidImage, bounds.Dx(), bounds.Dy())
	}

	grid := e.resize(img)
	luma := toLuma(grid)

	sum := 0
	for _, v := range luma {
		sum += v
	}
	mean := float64(sum) / float64(len(luma))

	fp := newFingerprint(len(luma))
	for i, v := range luma {
		if float64(v) > mean {
			fp.set(i)
		}
	}
	return fp, nil
}

// ExtractBytes decodes an encoded image (JPEG, PNG, GIF, BMP, TIFF or WebP) and extracts its fingerprint.
func (e *Extractor) ExtractBytes(data []byte) (Fingerprint, error) {
	img, err := Decode(data)
	if err != nil {
		return Fingerprint{}, err
	}
	return e.Extract(img)
}

// Decode decodes image data in any of the supported formats.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrInvalidImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// resize scales an image onto the hash grid. The destination is non-premultiplied
// so that the color channels survive transparency unchanged.
func (e *Extractor) resize(img image.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, e.size, e.size))
	e.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// toLuma returns one gray value (0-255) per grid cell in row-major order.
func toLuma(img *image.NRGBA) []int {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	luma := make([]int, 0, width*height)
	for y := range height {
		for x := range width {
			off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			r, g, b := int(img.Pix[off]), int(img.Pix[off+1]), int(img.Pix[off+2])
			// Rounded mean: (sum + 1) / 3 rounds x.67 up and x.33 down.
			luma = append(luma, (r+g+b+1)/3)
		}
	}
	return luma
}
