package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension bounds the longer side of a normalized photo.
	DefaultMaxDimension = 1024
	// DefaultQuality is the JPEG quality used when re-encoding.
	DefaultQuality = 85
	// DefaultMaxPixels is the largest declared width*height that gets decoded.
	DefaultMaxPixels = 50_000_000
)

// Normalizer uprights photos according to their EXIF orientation and
// shrinks them so neither side exceeds MaxDimension. Photos declaring more
// than MaxPixels are never decoded and pass through unchanged.
type Normalizer struct {
	MaxDimension int
	MaxPixels    int
	Quality      int
}

// NewNormalizer returns a normalizer; non-positive values fall back to defaults.
func NewNormalizer(maxDimension int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Normalizer{MaxDimension: maxDimension, MaxPixels: DefaultMaxPixels, Quality: DefaultQuality}
}

// Orientation reads the EXIF orientation tag, 1 when absent or unreadable.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// Normalize returns data unchanged when the photo is already upright and
// small enough, too large to decode, or would not get smaller. Otherwise it
// returns the photo re-encoded in its original format.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	if n.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(n.MaxPixels) {
		log.WithFields(log.Fields{
			"format": format,
			"size":   fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		}).Warn("Photo too large to normalize, keeping original")
		return data, nil
	}

	orientation := Orientation(data)
	if orientation == 1 && cfg.Width <= n.MaxDimension && cfg.Height <= n.MaxDimension {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	bounds := img.Bounds()

	img = applyOrientation(img, orientation)
	img = fit(img, n.MaxDimension)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.Quality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}

	// A rotated photo is kept even when it grew.
	if orientation == 1 && buf.Len() >= len(data) {
		return data, nil
	}

	out := img.Bounds()
	log.WithFields(log.Fields{
		"format":      format,
		"orientation": orientation,
		"from":        fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"to":          fmt.Sprintf("%dx%d", out.Dx(), out.Dy()),
		"bytes_in":    len(data),
		"bytes_out":   buf.Len(),
	}).Info("Photo normalized")

	return buf.Bytes(), nil
}

// fit scales img down, preserving aspect ratio, so both sides are <= limit.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	scale := float64(limit) / float64(w)
	if s := float64(limit) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	if nw > limit {
		nw = limit
	}
	if nh > limit {
		nh = limit
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// applyOrientation maps every source pixel to where EXIF orientation
// says it should be displayed.
func applyOrientation(img image.Image, orientation int) image.Image {
	if orientation < 2 || orientation > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2: // mirror horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirror vertical
				dx, dy = x, h-1-y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 clockwise
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 90 counter-clockwise
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
