package dataset

import (
	"github.com/pkg/errors"
)

// Batch is a stack of Items: Images is (N, C, H, W), Labels is (N, H, W) or
// nil when the items carry no masks.
type Batch struct {
	N, C, H, W int
	Images     []float32
	Labels     []int64
	// Indices holds the source position of every stacked item.
	Indices []int
}

// Stack concatenates items along a new leading batch axis. Every item must
// share the same image shape, mask shape and mask presence.
func Stack(items []Item) (*Batch, error) {
	if len(items) == 0 {
		return nil, errors.New("stack: no items")
	}
	first := items[0].Image
	withMask := items[0].Mask != nil

	b := &Batch{
		N:       len(items),
		C:       first.C,
		H:       first.H,
		W:       first.W,
		Images:  make([]float32, 0, len(items)*len(first.Data)),
		Indices: make([]int, 0, len(items)),
	}
	if withMask {
		b.Labels = make([]int64, 0, len(items)*first.H*first.W)
	}

	for _, it := range items {
		img := it.Image
		if img.C != b.C || img.H != b.H || img.W != b.W {
			return nil, errors.Errorf("stack: item %d has shape [%d %d %d], batch has [%d %d %d]",
				it.Index, img.C, img.H, img.W, b.C, b.H, b.W)
		}
		if (it.Mask != nil) != withMask {
			return nil, errors.Errorf("stack: item %d mask presence differs from the batch", it.Index)
		}
		b.Images = append(b.Images, img.Data...)
		if withMask {
			if it.Mask.H != b.H || it.Mask.W != b.W {
				return nil, errors.Errorf("stack: item %d mask is %dx%d, image is %dx%d",
					it.Index, it.Mask.H, it.Mask.W, b.H, b.W)
			}
			b.Labels = append(b.Labels, it.Mask.Data...)
		}
		b.Indices = append(b.Indices, it.Index)
	}
	return b, nil
}
