package dataset

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Image is a channel-first (C, H, W) float tensor with values in [0,1].
type Image struct {
	C, H, W int
	Data    []float32
}

// Mask is an (H, W) label map with values in {0,1}.
type Mask struct {
	H, W int
	Data []int64
}

// Item is one loaded sample. Mask is nil for inference-only splits.
type Item struct {
	Index int
	Image Image
	Mask  *Mask
}

// Source loads samples by position.
type Source interface {
	Len() int
	Item(idx int) (Item, error)
}

// Options controls how a Source turns files into tensors.
type Options struct {
	Split Split
	// Transform is applied to training samples only.
	Transform Transform
	// TileSize resizes every plane to TileSize x TileSize when > 0.
	TileSize int
}

type base struct {
	fs      afero.Fs
	samples []Sample
	opts    Options
}

func (b *base) Len() int { return len(b.samples) }

func (b *base) sample(idx int) (Sample, error) {
	if idx < 0 || idx >= len(b.samples) {
		return Sample{}, errors.Errorf("index %d out of range [0, %d)", idx, len(b.samples))
	}
	return b.samples[idx], nil
}

// readMask loads the mask when the split requires one.
func (b *base) readMask(s Sample) (image.Image, error) {
	if !b.opts.Split.HasLabels() {
		return nil, nil
	}
	if !s.HasMask() {
		return nil, &LoadError{Path: s.PrimaryPath, Err: errors.New("sample has no mask")}
	}
	return readImage(b.fs, s.MaskPath)
}

// prepare resizes and augments the planes of one sample. The mask, when
// present, must be the last element.
func (b *base) prepare(planes []image.Image, hasMask bool) []image.Image {
	if size := uint(b.opts.TileSize); size > 0 {
		for i, p := range planes {
			interp := resize.Bilinear
			if hasMask && i == len(planes)-1 {
				interp = resize.NearestNeighbor
			}
			planes[i] = resize.Resize(size, size, p, interp)
		}
	}
	if b.opts.Split == Train && b.opts.Transform != nil {
		planes = b.opts.Transform.Apply(planes...)
	}
	return planes
}

func sameSize(path string, imgs ...image.Image) error {
	want := imgs[0].Bounds().Size()
	for _, img := range imgs[1:] {
		if got := img.Bounds().Size(); got != want {
			return &LoadError{Path: path, Err: errors.Errorf("plane size %v does not match %v", got, want)}
		}
	}
	return nil
}

func toMask(img image.Image) *Mask {
	g := toGray(img)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	m := &Mask{H: h, W: w, Data: make([]int64, 0, w*h)}
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			m.Data = append(m.Data, int64(float64(v)/255.0))
		}
	}
	return m
}

// RadarSource loads dual-polarization samples and fuses them into a
// three-channel composite.
type RadarSource struct {
	base
}

// NewRadarSource creates a RadarSource over samples.
func NewRadarSource(fs afero.Fs, samples []Sample, opts Options) *RadarSource {
	return &RadarSource{base{fs: fs, samples: samples, opts: opts}}
}

// Item implements Source.
func (ds *RadarSource) Item(idx int) (Item, error) {
	s, err := ds.sample(idx)
	if err != nil {
		return Item{}, err
	}
	if s.SecondaryPath == "" || s.SecondaryPath == Missing {
		return Item{}, &LoadError{Path: s.PrimaryPath, Err: errors.New("sample has no secondary channel")}
	}

	vv, err := readImage(ds.fs, s.PrimaryPath)
	if err != nil {
		return Item{}, err
	}
	vh, err := readImage(ds.fs, s.SecondaryPath)
	if err != nil {
		return Item{}, err
	}
	mask, err := ds.readMask(s)
	if err != nil {
		return Item{}, err
	}

	planes := []image.Image{toGray(vv), toGray(vh)}
	if mask != nil {
		planes = append(planes, mask)
	}
	if err := sameSize(s.PrimaryPath, planes...); err != nil {
		return Item{}, err
	}
	planes = ds.prepare(planes, mask != nil)

	vvGray, vhGray := toGray(planes[0]), toGray(planes[1])
	item := Item{
		Index: idx,
		Image: Image{
			C:    3,
			H:    vvGray.Rect.Dy(),
			W:    vvGray.Rect.Dx(),
			Data: Fuse(grayPlane(vvGray), grayPlane(vhGray)),
		},
	}
	if mask != nil {
		item.Mask = toMask(planes[2])
	}
	return item, nil
}

// RGBSource loads single colour images.
type RGBSource struct {
	base
}

// NewRGBSource creates an RGBSource over samples.
func NewRGBSource(fs afero.Fs, samples []Sample, opts Options) *RGBSource {
	return &RGBSource{base{fs: fs, samples: samples, opts: opts}}
}

// Item implements Source.
func (ds *RGBSource) Item(idx int) (Item, error) {
	s, err := ds.sample(idx)
	if err != nil {
		return Item{}, err
	}
	img, err := readImage(ds.fs, s.PrimaryPath)
	if err != nil {
		return Item{}, err
	}
	mask, err := ds.readMask(s)
	if err != nil {
		return Item{}, err
	}

	planes := []image.Image{img}
	if mask != nil {
		planes = append(planes, mask)
	}
	if err := sameSize(s.PrimaryPath, planes...); err != nil {
		return Item{}, err
	}
	planes = ds.prepare(planes, mask != nil)

	rgba := toNRGBA(planes[0])
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	plane := w * h
	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		for x := 0; x < w; x++ {
			px := y*w + x
			data[px] = float32(float64(row[4*x]) / 255.0)
			data[plane+px] = float32(float64(row[4*x+1]) / 255.0)
			data[2*plane+px] = float32(float64(row[4*x+2]) / 255.0)
		}
	}

	item := Item{Index: idx, Image: Image{C: 3, H: h, W: w, Data: data}}
	if mask != nil {
		item.Mask = toMask(planes[1])
	}
	return item, nil
}

// NewSource picks the loader for a dataset variant.
func NewSource(variant string, fs afero.Fs, samples []Sample, opts Options) (Source, error) {
	switch variant {
	case "radar":
		return NewRadarSource(fs, samples, opts), nil
	case "rgb":
		return NewRGBSource(fs, samples, opts), nil
	}
	return nil, errors.Errorf("unknown dataset variant %q: expected radar or rgb", variant)
}
