package eval

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"go.uber.org/zap"

	"github.com/sugarme/floodseg/dataset"
	"github.com/sugarme/floodseg/dutil"
	"github.com/sugarme/floodseg/metric"
	"github.com/sugarme/floodseg/report"
)

// ErrNoBatches means the configuration yields no batch to evaluate.
var ErrNoBatches = errors.New("eval: no batches to evaluate")

// Model turns a batch of images into per-class scores. Implementations must
// return a prediction of shape (batch.N, 2, batch.H, batch.W).
type Model interface {
	Infer(ctx context.Context, batch *dataset.Batch) (metric.Prediction, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, batch *dataset.Batch) (metric.Prediction, error)

func (f ModelFunc) Infer(ctx context.Context, batch *dataset.Batch) (metric.Prediction, error) {
	return f(ctx, batch)
}

// Options configures one pass over a Source.
type Options struct {
	Source    dataset.Source
	Model     Model
	BatchSize int
	// Workers bounds concurrent sample loads within a batch.
	Workers int
	// DropLast skips the final partial batch.
	DropLast bool

	Engine   metric.Engine
	Recorder report.Recorder
	Logger   *zap.Logger
	// Progress draws a progress bar on stderr.
	Progress bool

	Split dataset.Split
	Epoch int
}

func (o *Options) loader() (*dutil.DataLoader[dataset.Item], error) {
	if o.Source == nil || o.Model == nil {
		return nil, errors.New("eval: source and model are required")
	}
	if o.Source.Len() == 0 {
		return nil, errors.WithStack(dataset.ErrEmptyDataset)
	}
	if o.BatchSize <= 0 {
		return nil, errors.Errorf("eval: invalid batch size %d", o.BatchSize)
	}
	s, err := dutil.NewBatchSampler(o.Source.Len(), o.BatchSize, o.DropLast, false)
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, errors.Wrapf(ErrNoBatches, "%d samples, batch size %d, drop last", o.Source.Len(), o.BatchSize)
	}
	return dutil.NewDataLoader[dataset.Item](o.Source, s, dutil.WithWorkers(o.Workers))
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// each drives step once per batch, behind a progress bar when requested.
// It stops at the first error or when ctx is done.
func each(ctx context.Context, n int, desc string, progress bool, step func(i int) error) error {
	if !progress {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(i); err != nil {
				return err
			}
		}
		return nil
	}

	var stepErr error
	err := tqdm.With(iterators.Interval(0, n), desc, func(v interface{}) (brk bool) {
		if stepErr = ctx.Err(); stepErr != nil {
			return true
		}
		stepErr = step(v.(int))
		return stepErr != nil
	})
	if stepErr != nil {
		return stepErr
	}
	return err
}

// Run evaluates every batch of the source against its masks and returns the
// epoch summary. The source must carry labels. Cancelling ctx stops the
// pass between batches and returns the context error.
func Run(ctx context.Context, opts Options) (metric.Summary, error) {
	if !opts.Split.HasLabels() {
		return metric.Summary{}, errors.Errorf("eval: split %q has no labels, use Predict", opts.Split)
	}
	dl, err := opts.loader()
	if err != nil {
		return metric.Summary{}, err
	}
	log := opts.logger().With(zap.String("split", string(opts.Split)), zap.Int("epoch", opts.Epoch))

	var agg metric.Aggregator
	step := func(i int) error {
		items, err := dl.Next(ctx)
		if err != nil {
			return err
		}
		batch, err := dataset.Stack(items)
		if err != nil {
			return err
		}
		if batch.Labels == nil {
			return errors.Errorf("eval: batch %d has no masks", i)
		}

		pred, err := opts.Model.Infer(ctx, batch)
		if err != nil {
			return errors.Wrapf(err, "infer batch %d", i)
		}
		target, err := metric.NewTarget(batch.Labels, batch.N, batch.H, batch.W)
		if err != nil {
			return err
		}
		res, err := opts.Engine.Compute(pred, target)
		if err != nil {
			return errors.Wrapf(err, "batch %d", i)
		}
		agg.Add(res)

		log.Debug("batch evaluated",
			zap.Int("batch", i),
			zap.Int("samples", res.Samples),
			zap.Float64("miou", res.MeanIoU),
			zap.Float64("f1", res.F1),
		)
		if opts.Recorder != nil {
			rec := report.NewBatchRecord(string(opts.Split), opts.Epoch, i, res)
			if err := opts.Recorder.RecordBatch(rec); err != nil {
				return err
			}
		}
		return nil
	}

	desc := fmt.Sprintf("Evaluating %s", opts.Split)
	if err := each(ctx, dl.Len(), desc, opts.Progress, step); err != nil {
		log.Warn("evaluation stopped", zap.Int("batches", agg.Len()), zap.Error(err))
		return metric.Summary{}, err
	}

	sum := agg.Summary()
	if opts.Recorder != nil {
		if err := opts.Recorder.RecordEpoch(report.NewEpochRecord(string(opts.Split), opts.Epoch, sum)); err != nil {
			return sum, err
		}
	}
	log.Info("evaluation done",
		zap.Int("batches", sum.Batches),
		zap.Int("samples", sum.Samples),
		zap.Float64("miou", sum.MeanIoU),
		zap.Float64("iou_flood", sum.IoUFlood.Value()),
		zap.Float64("accuracy", sum.PixelAccuracy),
		zap.Float64("f1", sum.F1),
	)
	return sum, nil
}

// Estimate is the flood share predicted for one sample.
type Estimate struct {
	Index           int
	FloodPercentage float64
}

// Predict runs the model over a source without ground truth and returns the
// predicted flood percentage of every sample in source order.
func Predict(ctx context.Context, opts Options) ([]Estimate, error) {
	dl, err := opts.loader()
	if err != nil {
		return nil, err
	}
	log := opts.logger().With(zap.String("split", string(opts.Split)))

	out := make([]Estimate, 0, opts.Source.Len())
	step := func(i int) error {
		items, err := dl.Next(ctx)
		if err != nil {
			return err
		}
		batch, err := dataset.Stack(items)
		if err != nil {
			return err
		}
		pred, err := opts.Model.Infer(ctx, batch)
		if err != nil {
			return errors.Wrapf(err, "infer batch %d", i)
		}
		if pred.N != batch.N || pred.H != batch.H || pred.W != batch.W {
			return errors.Wrapf(metric.ErrShape, "batch %d: prediction [%d %d %d %d], images [%d %d %d]",
				i, pred.N, pred.C, pred.H, pred.W, batch.N, batch.H, batch.W)
		}
		for j, pct := range metric.FloodPercentages(pred) {
			out = append(out, Estimate{Index: batch.Indices[j], FloodPercentage: pct})
		}
		return nil
	}

	if err := each(ctx, dl.Len(), fmt.Sprintf("Predicting %s", opts.Split), opts.Progress, step); err != nil {
		return nil, err
	}
	log.Info("prediction done", zap.Int("samples", len(out)))
	return out, nil
}
