package dataset

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Missing marks a companion path that does not exist for the split, e.g.
// the mask of an inference-only sample.
const Missing = "<missing>"

var (
	// ErrEmptyDataset means the index holds no samples. It points at a
	// misconfigured root or split, not at a bad sample.
	ErrEmptyDataset = errors.New("dataset: no samples found")

	// ErrNaming is returned when a companion path cannot be derived from a
	// primary file name.
	ErrNaming = errors.New("dataset: unrecognised file name")
)

// Split is the dataset partition a sample belongs to.
type Split string

const (
	Train      Split = "train"
	Validation Split = "validation"
	Test       Split = "test"
)

// ParseSplit validates a split name.
func ParseSplit(s string) (Split, error) {
	switch sp := Split(strings.ToLower(strings.TrimSpace(s))); sp {
	case Train, Validation, Test:
		return sp, nil
	}
	return "", errors.Errorf("invalid split %q: expected train, validation or test", s)
}

// HasLabels reports whether samples of the split carry ground truth.
func (s Split) HasLabels() bool {
	return s != Test
}

// Sample is one row of the dataset index.
type Sample struct {
	Key    string
	Region string

	PrimaryPath   string
	SecondaryPath string // empty for single-image datasets
	MaskPath      string // Missing for inference-only splits
	WaterBodyPath string // empty when the naming convention has none
}

// HasMask reports whether the sample points at a ground-truth mask.
func (s Sample) HasMask() bool {
	return s.MaskPath != "" && s.MaskPath != Missing
}

// RequireSamples turns an empty index into ErrEmptyDataset.
func RequireSamples(samples []Sample, root string) error {
	if len(samples) == 0 {
		return errors.Wrapf(ErrEmptyDataset, "root %q", root)
	}
	return nil
}

// Exclude drops the samples at the given positions and keeps the relative
// order of the rest.
func Exclude(samples []Sample, positions []int) []Sample {
	drop := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		drop[p] = struct{}{}
	}
	out := make([]Sample, 0, len(samples))
	for i, s := range samples {
		if _, ok := drop[i]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LoadError reports a file that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
