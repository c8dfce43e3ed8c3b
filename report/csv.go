package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// CSV streams batch and epoch records to two CSV writers. The header is
// written before the first record of each stream.
type CSV struct {
	batches, epochs          io.Writer
	batchHeader, epochHeader bool
	closers                  []io.Closer
}

// NewCSV creates a CSV recorder over the given writers.
func NewCSV(batches, epochs io.Writer) *CSV {
	return &CSV{batches: batches, epochs: epochs}
}

// CreateCSV creates batches.csv and epochs.csv inside dir.
func CreateCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}
	bf, err := os.Create(filepath.Join(dir, "batches.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "create batches.csv")
	}
	ef, err := os.Create(filepath.Join(dir, "epochs.csv"))
	if err != nil {
		bf.Close()
		return nil, errors.Wrap(err, "create epochs.csv")
	}
	c := NewCSV(bf, ef)
	c.closers = []io.Closer{bf, ef}
	return c, nil
}

func (c *CSV) RecordBatch(r BatchRecord) error {
	rows := []BatchRecord{r}
	var err error
	if c.batchHeader {
		err = gocsv.MarshalWithoutHeaders(&rows, c.batches)
	} else {
		err = gocsv.Marshal(&rows, c.batches)
		c.batchHeader = true
	}
	return errors.Wrap(err, "write batch record")
}

func (c *CSV) RecordEpoch(r EpochRecord) error {
	rows := []EpochRecord{r}
	var err error
	if c.epochHeader {
		err = gocsv.MarshalWithoutHeaders(&rows, c.epochs)
	} else {
		err = gocsv.Marshal(&rows, c.epochs)
		c.epochHeader = true
	}
	return errors.Wrap(err, "write epoch record")
}

// Close closes the files opened by CreateCSV.
func (c *CSV) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
