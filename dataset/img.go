package dataset

import (
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// readImage reads image from file.
func readImage(fs afero.Fs, filename string) (image.Image, error) {
	f, err := fs.Open(filename)
	if err != nil {
		return nil, &LoadError{Path: filename, Err: err}
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".tiff", ".tif":
		img, err = tiff.Decode(f)
	case ".bmp":
		img, err = bmp.Decode(f)
	default:
		err = errors.Errorf("unsupported image format %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, &LoadError{Path: filename, Err: err}
	}
	return img, nil
}

// readGray reads a file as a single 8-bit channel. Colour images are
// reduced with the 0.299/0.587/0.114 luminosity weights.
func readGray(fs afero.Fs, filename string) (*image.Gray, error) {
	img, err := readImage(fs, filename)
	if err != nil {
		return nil, err
	}
	return toGray(img), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// toNRGBA keeps colour channels unpremultiplied, so translucent pixels
// still carry their stored RGB values.
func toNRGBA(img image.Image) *image.NRGBA {
	if m, ok := img.(*image.NRGBA); ok && m.Rect.Min == (image.Point{}) {
		return m
	}
	b := img.Bounds()
	m := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), img, b.Min, draw.Src)
	return m
}

// grayPlane scales an 8-bit plane to [0,1].
func grayPlane(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			out = append(out, float64(v)/255.0)
		}
	}
	return out
}
