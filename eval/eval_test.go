package eval_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sugarme/floodseg/dataset"
	"github.com/sugarme/floodseg/eval"
	"github.com/sugarme/floodseg/metric"
	"github.com/sugarme/floodseg/report"
)

// memSource serves 1x2x2 tiles whose mask is given per sample.
type memSource struct {
	masks [][]int64
}

func (s memSource) Len() int { return len(s.masks) }

func (s memSource) Item(idx int) (dataset.Item, error) {
	it := dataset.Item{
		Index: idx,
		Image: dataset.Image{C: 1, H: 2, W: 2, Data: []float32{0, 0, 0, 0}},
	}
	if s.masks[idx] != nil {
		it.Mask = &dataset.Mask{H: 2, W: 2, Data: append([]int64(nil), s.masks[idx]...)}
	}
	return it, nil
}

// oracle predicts the labels themselves, or flood everywhere without labels.
var oracle = eval.ModelFunc(func(ctx context.Context, b *dataset.Batch) (metric.Prediction, error) {
	plane := b.H * b.W
	data := make([]float32, b.N*2*plane)
	for i := 0; i < b.N; i++ {
		for px := 0; px < plane; px++ {
			c := 1
			if b.Labels != nil {
				c = int(b.Labels[i*plane+px])
			}
			data[i*2*plane+c*plane+px] = 1
		}
	}
	return metric.NewPrediction(data, b.N, 2, b.H, b.W)
})

type memRecorder struct {
	batches []report.BatchRecord
	epochs  []report.EpochRecord
}

func (r *memRecorder) RecordBatch(b report.BatchRecord) error {
	r.batches = append(r.batches, b)
	return nil
}

func (r *memRecorder) RecordEpoch(e report.EpochRecord) error {
	r.epochs = append(r.epochs, e)
	return nil
}

func (r *memRecorder) Close() error { return nil }

func TestRunPerfectPrediction(t *testing.T) {
	src := memSource{masks: [][]int64{
		{0, 1, 1, 0},
		{0, 0, 0, 0},
		{1, 1, 1, 1},
	}}
	rec := &memRecorder{}
	core, logs := observer.New(zap.InfoLevel)

	sum, err := eval.Run(context.Background(), eval.Options{
		Source:    src,
		Model:     oracle,
		BatchSize: 2,
		Workers:   2,
		Recorder:  rec,
		Logger:    zap.New(core),
		Split:     dataset.Validation,
		Epoch:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, 3, sum.Samples)
	assert.InDelta(t, 1.0, sum.PixelAccuracy, 1e-9)
	// only the first tile has both classes
	assert.Equal(t, 1, sum.IoUFlood.Count)
	assert.InDelta(t, 1.0, sum.IoUFlood.Value(), 1e-9)

	require.Len(t, rec.batches, 2)
	assert.Equal(t, 2, rec.batches[0].Samples)
	assert.Equal(t, 1, rec.batches[1].Samples)
	assert.Equal(t, 1, rec.batches[1].Batch)
	require.Len(t, rec.epochs, 1)
	assert.Equal(t, 3, rec.epochs[0].Epoch)
	assert.Equal(t, "validation", rec.epochs[0].Split)

	assert.Equal(t, 1, logs.FilterMessage("evaluation done").Len())
}

func TestRunConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	_, err := eval.Run(ctx, eval.Options{Source: memSource{}, Model: oracle, BatchSize: 2, Split: dataset.Train})
	assert.True(t, errors.Is(err, dataset.ErrEmptyDataset))

	src := memSource{masks: [][]int64{{0, 0, 0, 0}}}
	_, err = eval.Run(ctx, eval.Options{Source: src, Model: oracle, BatchSize: 4, DropLast: true, Split: dataset.Train})
	assert.True(t, errors.Is(err, eval.ErrNoBatches))

	_, err = eval.Run(ctx, eval.Options{Source: src, Model: oracle, BatchSize: 0, Split: dataset.Train})
	assert.Error(t, err)

	_, err = eval.Run(ctx, eval.Options{Source: src, Model: oracle, BatchSize: 1, Split: dataset.Test})
	assert.Error(t, err)

	_, err = eval.Run(ctx, eval.Options{Source: src, BatchSize: 1, Split: dataset.Train})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	src := memSource{masks: [][]int64{{0, 0, 0, 0}, {1, 1, 1, 1}, {0, 1, 0, 1}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	model := eval.ModelFunc(func(ctx context.Context, b *dataset.Batch) (metric.Prediction, error) {
		calls++
		cancel()
		return oracle.Infer(ctx, b)
	})

	_, err := eval.Run(ctx, eval.Options{Source: src, Model: model, BatchSize: 1, Split: dataset.Validation})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRunModelError(t *testing.T) {
	src := memSource{masks: [][]int64{{0, 0, 0, 0}}}
	boom := errors.New("boom")
	model := eval.ModelFunc(func(ctx context.Context, b *dataset.Batch) (metric.Prediction, error) {
		return metric.Prediction{}, boom
	})

	_, err := eval.Run(context.Background(), eval.Options{Source: src, Model: model, BatchSize: 1, Split: dataset.Validation})
	assert.True(t, errors.Is(err, boom))
}

func TestRunShapeMismatch(t *testing.T) {
	src := memSource{masks: [][]int64{{0, 0, 0, 0}}}
	model := eval.ModelFunc(func(ctx context.Context, b *dataset.Batch) (metric.Prediction, error) {
		return metric.NewPrediction(make([]float32, 2*3*3), 1, 2, 3, 3)
	})

	_, err := eval.Run(context.Background(), eval.Options{Source: src, Model: model, BatchSize: 1, Split: dataset.Validation})
	assert.True(t, errors.Is(err, metric.ErrShape))
}

func TestPredict(t *testing.T) {
	src := memSource{masks: [][]int64{nil, nil, nil}}

	est, err := eval.Predict(context.Background(), eval.Options{
		Source:    src,
		Model:     oracle,
		BatchSize: 2,
		Split:     dataset.Test,
	})
	require.NoError(t, err)
	require.Len(t, est, 3)
	for i, e := range est {
		assert.Equal(t, i, e.Index)
		assert.InDelta(t, 100.0, e.FloodPercentage, 1e-9)
	}
}
