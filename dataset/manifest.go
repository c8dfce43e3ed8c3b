package dataset

import (
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

var manifestColumns = []string{
	"key",
	"region",
	"primary_path",
	"secondary_path",
	"mask_path",
	"water_body_path",
}

// ToDataFrame lays the index out as a table, one row per sample.
func ToDataFrame(samples []Sample) dataframe.DataFrame {
	cols := make([][]string, len(manifestColumns))
	for _, s := range samples {
		row := []string{s.Key, s.Region, s.PrimaryPath, s.SecondaryPath, s.MaskPath, s.WaterBodyPath}
		for i, v := range row {
			cols[i] = append(cols[i], v)
		}
	}
	ss := make([]series.Series, len(manifestColumns))
	for i, name := range manifestColumns {
		ss[i] = series.New(cols[i], series.String, name)
	}
	return dataframe.New(ss...)
}

// WriteManifest writes the index as CSV with a header row.
func WriteManifest(w io.Writer, samples []Sample) error {
	df := ToDataFrame(samples)
	if df.Err != nil {
		return errors.Wrap(df.Err, "build manifest")
	}
	return errors.Wrap(df.WriteCSV(w), "write manifest")
}

// ReadManifest reads an index written by WriteManifest, keeping row order.
func ReadManifest(r io.Reader) ([]Sample, error) {
	types := make(map[string]series.Type, len(manifestColumns))
	for _, name := range manifestColumns {
		types[name] = series.String
	}
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.WithTypes(types))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "read manifest")
	}

	cols := make([][]string, len(manifestColumns))
	for i, name := range manifestColumns {
		col := df.Col(name)
		if col.Err != nil {
			return nil, errors.Wrapf(col.Err, "manifest column %q", name)
		}
		cols[i] = col.Records()
	}

	samples := make([]Sample, df.Nrow())
	for i := range samples {
		samples[i] = Sample{
			Key:           cols[0][i],
			Region:        cols[1][i],
			PrimaryPath:   cols[2][i],
			SecondaryPath: cols[3][i],
			MaskPath:      cols[4][i],
			WaterBodyPath: cols[5][i],
		}
	}
	return samples, nil
}
