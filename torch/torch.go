// Package torch connects the evaluation loop to libtorch through gotch.
package torch

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/floodseg/dataset"
	"github.com/sugarme/floodseg/metric"
)

// BatchTensor returns the (N, C, H, W) float tensor of a batch on the CPU.
func BatchTensor(b *dataset.Batch) (*ts.Tensor, error) {
	if len(b.Images) != b.N*b.C*b.H*b.W || len(b.Images) == 0 {
		return nil, errors.Errorf("batch buffer holds %d values, shape [%d %d %d %d]", len(b.Images), b.N, b.C, b.H, b.W)
	}
	x, err := ts.OfSlice(b.Images)
	if err != nil {
		return nil, err
	}
	return x.MustView([]int64{int64(b.N), int64(b.C), int64(b.H), int64(b.W)}, true), nil
}

// LabelTensor returns the (N, H, W) int64 label tensor of a batch on the CPU.
func LabelTensor(b *dataset.Batch) (*ts.Tensor, error) {
	if b.Labels == nil {
		return nil, errors.New("batch has no labels")
	}
	x, err := ts.OfSlice(b.Labels)
	if err != nil {
		return nil, err
	}
	return x.MustView([]int64{int64(b.N), int64(b.H), int64(b.W)}, true), nil
}

// PredictionFromTensor copies an (N, C, H, W) score tensor into a
// Prediction. The tensor is not dropped.
func PredictionFromTensor(x *ts.Tensor) (metric.Prediction, error) {
	size := x.MustSize()
	if len(size) != 4 {
		return metric.Prediction{}, errors.Wrapf(metric.ErrShape, "expected 4 dims, got %v", size)
	}
	cpu := x.MustTo(gotch.CPU, false)
	vals := cpu.Float64Values()
	cpu.MustDrop()

	data := make([]float32, len(vals))
	for i, v := range vals {
		data[i] = float32(v)
	}
	return metric.NewPrediction(data, int(size[0]), int(size[1]), int(size[2]), int(size[3]))
}

// Model is a TorchScript segmentation network. Calls are serialized.
type Model struct {
	mu     sync.Mutex
	module *ts.CModule
	device gotch.Device
}

// Load reads a TorchScript file onto the GPU when cuda is set and one is
// available, else onto the CPU.
func Load(path string, cuda bool) (*Model, error) {
	device := gotch.CPU
	if cuda {
		device = gotch.NewCuda().CudaIfAvailable()
	}
	m, err := ts.ModuleLoadOnDevice(path, device)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return &Model{module: m, device: device}, nil
}

// Device returns where the network runs.
func (m *Model) Device() gotch.Device { return m.device }

// Infer runs the network without gradients. Scores whose spatial size
// differs from the batch are resized with nearest-neighbour sampling.
func (m *Model) Infer(ctx context.Context, b *dataset.Batch) (metric.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return metric.Prediction{}, err
	}
	x, err := BatchTensor(b)
	if err != nil {
		return metric.Prediction{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		pred   metric.Prediction
		runErr error
	)
	ts.NoGrad(func() {
		input := x.MustTo(m.device, true)
		logits, err := m.module.ForwardTs([]ts.Tensor{*input})
		input.MustDrop()
		if err != nil {
			runErr = errors.Wrap(err, "forward")
			return
		}
		logits = logits.MustTotype(gotch.Float, true)

		size := logits.MustSize()
		if len(size) == 4 && (size[2] != int64(b.H) || size[3] != int64(b.W)) {
			logits = logits.MustUpsampleNearest2d([]int64{int64(b.H), int64(b.W)}, nil, nil, true)
		}
		pred, runErr = PredictionFromTensor(logits)
		logits.MustDrop()
	})
	return pred, runErr
}

// Close releases the network.
func (m *Model) Close() {
	m.module.Drop()
}
