package report_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/floodseg/metric"
	"github.com/sugarme/floodseg/report"
)

func sampleResult() metric.Result {
	return metric.Result{
		Samples:       4,
		MeanIoU:       0.75,
		IoUBackground: 0.9,
		IoUFlood:      metric.Mean{Sum: 1.2, Count: 2},
		PixelAccuracy: 0.95,
		F1:            0.5,
	}
}

func TestCSVWritesHeaderOnce(t *testing.T) {
	var batches, epochs bytes.Buffer
	c := report.NewCSV(&batches, &epochs)

	require.NoError(t, c.RecordBatch(report.NewBatchRecord("validation", 0, 0, sampleResult())))
	require.NoError(t, c.RecordBatch(report.NewBatchRecord("validation", 0, 1, sampleResult())))
	require.NoError(t, c.RecordEpoch(report.EpochRecord{Split: "validation", Batches: 2, Samples: 8, MeanIoU: 0.75}))
	require.NoError(t, c.Close())

	lines := strings.Split(strings.TrimSpace(batches.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "split,epoch,batch,samples,miou,"))
	assert.True(t, strings.HasPrefix(lines[1], "validation,0,0,4,0.75,0.9,1.2,2,"))
	assert.True(t, strings.HasPrefix(lines[2], "validation,0,1,"))

	lines = strings.Split(strings.TrimSpace(epochs.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "validation,0,2,8,0.75,"))
}

func TestNewEpochRecord(t *testing.T) {
	var agg metric.Aggregator
	agg.Add(sampleResult())
	agg.Add(metric.Result{Samples: 2, IoUFlood: metric.Mean{Sum: 0.3, Count: 1}})

	rec := report.NewEpochRecord("train", 5, agg.Summary())
	assert.Equal(t, 2, rec.Batches)
	assert.Equal(t, 6, rec.Samples)
	assert.Equal(t, 3, rec.IoUFloodCount)
	assert.InDelta(t, 0.5, rec.IoUFlood, 1e-9)
	assert.InDelta(t, 0.375, rec.MeanIoU, 1e-9)
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := report.OpenStore(path, "baseline")
	require.NoError(t, err)
	assert.NotEmpty(t, s.RunID())

	require.NoError(t, s.RecordBatch(report.NewBatchRecord("validation", 1, 0, sampleResult())))
	require.NoError(t, s.RecordEpoch(report.EpochRecord{Split: "validation", Epoch: 1, Batches: 1, Samples: 4, IoUFlood: 0.6}))
	require.NoError(t, s.RecordEpoch(report.EpochRecord{Split: "validation", Epoch: 2, Batches: 1, Samples: 4, IoUFlood: 0.7}))

	got, err := s.Epochs()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Epoch)
	assert.InDelta(t, 0.7, got[1].IoUFlood, 1e-9)
	require.NoError(t, s.Close())

	// a second run on the same file sees only its own records
	s2, err := report.OpenStore(path, "baseline")
	require.NoError(t, err)
	defer s2.Close()
	assert.NotEqual(t, s.RunID(), s2.RunID())
	got, err = s2.Epochs()
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failing struct{ closed *int }

func (f failing) RecordBatch(report.BatchRecord) error { return errors.New("batch sink down") }
func (f failing) RecordEpoch(report.EpochRecord) error { return nil }
func (f failing) Close() error                         { *f.closed++; return nil }

func TestMulti(t *testing.T) {
	var buf, ebuf bytes.Buffer
	closed := 0
	m := report.Multi(report.NewCSV(&buf, &ebuf), failing{closed: &closed})

	err := m.RecordBatch(report.BatchRecord{Split: "train"})
	assert.EqualError(t, err, "batch sink down")
	assert.Contains(t, buf.String(), "train")

	require.NoError(t, m.RecordEpoch(report.EpochRecord{Split: "train"}))
	require.NoError(t, m.Close())
	assert.Equal(t, 1, closed)
}
