package dataset

import (
	"image"
	"math/rand"
	"sync"

	"github.com/disintegration/imaging"
)

// Transform applies one random geometric operation to every image of a
// sample so that image planes and mask stay aligned.
type Transform interface {
	Apply(imgs ...image.Image) []image.Image
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(imgs ...image.Image) []image.Image

func (f TransformFunc) Apply(imgs ...image.Image) []image.Image { return f(imgs...) }

// FlipRotate is the training augmentation: horizontal flip, rotation by a
// random multiple of 90 degrees and vertical flip, each applied with
// probability P. It is safe for concurrent use.
type FlipRotate struct {
	P float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFlipRotate creates a FlipRotate with P = 0.5.
func NewFlipRotate(seed int64) *FlipRotate {
	return &FlipRotate{P: 0.5, rng: rand.New(rand.NewSource(seed))}
}

type flipRotateOp struct {
	hflip, vflip bool
	quarter      int
}

func (t *FlipRotate) draw() flipRotateOp {
	t.mu.Lock()
	defer t.mu.Unlock()

	var op flipRotateOp
	op.hflip = t.rng.Float64() < t.P
	if t.rng.Float64() < t.P {
		op.quarter = t.rng.Intn(4)
	}
	op.vflip = t.rng.Float64() < t.P
	return op
}

func (t *FlipRotate) Apply(imgs ...image.Image) []image.Image {
	op := t.draw()
	out := make([]image.Image, len(imgs))
	for i, img := range imgs {
		if op.hflip {
			img = imaging.FlipH(img)
		}
		for q := 0; q < op.quarter; q++ {
			img = imaging.Rotate90(img)
		}
		if op.vflip {
			img = imaging.FlipV(img)
		}
		out[i] = img
	}
	return out
}
