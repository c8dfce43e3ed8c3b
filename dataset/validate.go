package dataset

import (
	"context"
	"image"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Validator flags samples whose primary image is a placeholder tile: a
// grayscale image whose only values are 0 and/or 255.
type Validator struct {
	fs      afero.Fs
	workers int
}

// NewValidator creates a Validator reading through fs with up to workers
// concurrent decodes. workers <= 0 uses GOMAXPROCS.
func NewValidator(fs afero.Fs, workers int) *Validator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Validator{fs: fs, workers: workers}
}

// Degenerate returns the ascending positions of degenerate samples. Any
// unreadable primary image aborts the scan with a *LoadError.
func (v *Validator) Degenerate(ctx context.Context, samples []Sample) ([]int, error) {
	flags := make([]bool, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i := range samples {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := readGray(v.fs, samples[i].PrimaryPath)
			if err != nil {
				return err
			}
			flags[i] = IsDegenerate(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []int
	for i, bad := range flags {
		if bad {
			out = append(out, i)
		}
	}
	return out, nil
}

// IsDegenerate reports whether the distinct pixel values of g are exactly
// {0}, {255} or {0, 255}.
func IsDegenerate(g *image.Gray) bool {
	var seen [256]bool
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			if p != 0 && p != 255 {
				return false
			}
			seen[p] = true
		}
	}
	return seen[0] || seen[255]
}
