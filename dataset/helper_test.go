package dataset_test

import (
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// writeGray writes a w x h grayscale PNG whose pixels are taken row-major
// from vals.
func writeGray(t *testing.T, fs afero.Fs, path string, w, h int, vals ...uint8) {
	t.Helper()
	require.Len(t, vals, w*h)
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, vals)
	writePNG(t, fs, path, img)
}

// fillGray writes a w x h grayscale PNG with a single value.
func fillGray(t *testing.T, fs afero.Fs, path string, w, h int, v uint8) {
	t.Helper()
	vals := make([]uint8, w*h)
	for i := range vals {
		vals[i] = v
	}
	writeGray(t, fs, path, w, h, vals...)
}

func writeRGB(t *testing.T, fs afero.Fs, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	writePNG(t, fs, path, img)
}

func writePNG(t *testing.T, fs afero.Fs, path string, img image.Image) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
	f, err := fs.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}
