package photo

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// marker builds a w x h image, blue everywhere except a red top-left pixel.
func marker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, blue)
		}
	}
	img.Set(0, 0, red)
	return img
}

// noise builds a w x h image of seeded random pixels that compresses poorly.
func noise(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// pngHeader returns a PNG holding only an IHDR chunk for a w x h grayscale
// image. It decodes as a config but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, body []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(body)))
		buf.Write(n[:])
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(body)
		buf.WriteString(kind)
		buf.Write(body)
		binary.BigEndian.PutUint32(n[:], crc.Sum32())
		buf.Write(n[:])
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth, color type 0 (gray)
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestApplyOrientation(t *testing.T) {
	testCases := []struct {
		orientation int
		size        image.Point
		redAt       image.Point
	}{
		{1, image.Pt(3, 2), image.Pt(0, 0)},
		{2, image.Pt(3, 2), image.Pt(2, 0)},
		{3, image.Pt(3, 2), image.Pt(2, 1)},
		{4, image.Pt(3, 2), image.Pt(0, 1)},
		{5, image.Pt(2, 3), image.Pt(0, 0)},
		{6, image.Pt(2, 3), image.Pt(1, 0)},
		{7, image.Pt(2, 3), image.Pt(1, 2)},
		{8, image.Pt(2, 3), image.Pt(0, 2)},
	}

	for _, testCase := range testCases {
		out := applyOrientation(marker(3, 2), testCase.orientation)
		assert.Equal(t, testCase.size, out.Bounds().Size(), "orientation %d size", testCase.orientation)
		r, _, _, _ := out.At(testCase.redAt.X, testCase.redAt.Y).RGBA()
		assert.Equal(t, uint32(0xffff), r, "orientation %d: red pixel expected at %v", testCase.orientation, testCase.redAt)
	}
}

func TestNormalizeKeepsSmallUprightPhoto(t *testing.T) {
	data := encodePNG(t, marker(10, 10))

	out, err := NewNormalizer(64).Normalize(data)

	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestNormalizeShrinksLargePhoto(t *testing.T) {
	data := encodePNG(t, noise(200, 100))

	out, err := NewNormalizer(50).Normalize(data)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Pt(50, 25), img.Bounds().Size())
	assert.Less(t, len(out), len(data))
}

func TestNormalizeKeepsJPEGFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noise(200, 100), &jpeg.Options{Quality: 95}))

	out, err := NewNormalizer(50).Normalize(buf.Bytes())
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Pt(50, 25), img.Bounds().Size())
}

func TestNormalizeSkipsOversizedDimensions(t *testing.T) {
	data := pngHeader(20000, 20000)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.Width)

	out, err := NewNormalizer(1024).Normalize(data)

	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	_, err := NewNormalizer(0).Normalize([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestOrientationWithoutExif(t *testing.T) {
	assert.Equal(t, 1, Orientation(encodePNG(t, marker(2, 2))))
	assert.Equal(t, 1, Orientation(nil))
}
