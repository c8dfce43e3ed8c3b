package dataset_test

import (
	"context"
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/floodseg/dataset"
)

func TestIsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		pix  []uint8
		want bool
	}{
		{"all zero", []uint8{0, 0, 0, 0}, true},
		{"all white", []uint8{255, 255, 255, 255}, true},
		{"binary", []uint8{0, 255, 255, 0}, true},
		{"mid gray", []uint8{0, 255, 128, 0}, false},
		{"uniform gray", []uint8{7, 7, 7, 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := image.NewGray(image.Rect(0, 0, 2, 2))
			copy(g.Pix, tt.pix)
			assert.Equal(t, tt.want, dataset.IsDegenerate(g))
		})
	}
}

func TestValidatorDegenerate(t *testing.T) {
	fs := afero.NewMemMapFs()
	fillGray(t, fs, "/v/a.png", 3, 3, 0)
	writeGray(t, fs, "/v/b.png", 2, 2, 10, 20, 30, 40)
	writeGray(t, fs, "/v/c.png", 2, 2, 0, 255, 0, 255)
	writeGray(t, fs, "/v/d.png", 2, 2, 0, 255, 128, 255)

	samples := []dataset.Sample{
		{PrimaryPath: "/v/a.png"},
		{PrimaryPath: "/v/b.png"},
		{PrimaryPath: "/v/c.png"},
		{PrimaryPath: "/v/d.png"},
	}

	bad, err := dataset.NewValidator(fs, 2).Degenerate(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, bad)

	kept := dataset.Exclude(samples, bad)
	require.Len(t, kept, 2)
	assert.Equal(t, "/v/b.png", kept[0].PrimaryPath)
	assert.Equal(t, "/v/d.png", kept[1].PrimaryPath)
}

func TestValidatorUnreadable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/v/broken.png", []byte("not a png"), 0644))

	_, err := dataset.NewValidator(fs, 0).Degenerate(context.Background(), []dataset.Sample{
		{PrimaryPath: "/v/broken.png"},
	})
	var le *dataset.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "/v/broken.png", le.Path)

	_, err = dataset.NewValidator(fs, 1).Degenerate(context.Background(), []dataset.Sample{
		{PrimaryPath: "/v/absent.png"},
	})
	assert.True(t, errors.As(err, &le))
}
