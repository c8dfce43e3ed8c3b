package torch_test

import (
	"reflect"
	"testing"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/floodseg/dataset"
	"github.com/sugarme/floodseg/metric"
	"github.com/sugarme/floodseg/torch"
)

func TestBatchTensorRoundTrip(t *testing.T) {
	b := &dataset.Batch{
		N: 1, C: 2, H: 1, W: 3,
		Images: []float32{0.1, 0.9, 0.2, 0.8, 0.3, 0.4},
		Labels: []int64{1, 0, 1},
	}

	x, err := torch.BatchTensor(b)
	if err != nil {
		t.Fatal(err)
	}
	defer x.MustDrop()
	if got := x.MustSize(); !reflect.DeepEqual(got, []int64{1, 2, 1, 3}) {
		t.Errorf("Want size: [1 2 1 3]\nGot: %v\n", got)
	}

	pred, err := torch.PredictionFromTensor(x)
	if err != nil {
		t.Fatal(err)
	}
	// class 1 wins at pixel 0, class 0 at pixels 1 and 2
	want := []int64{1, 0, 0}
	if got := metric.Argmax(pred).Data; !reflect.DeepEqual(got, want) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}

	y, err := torch.LabelTensor(b)
	if err != nil {
		t.Fatal(err)
	}
	defer y.MustDrop()
	if got := y.Int64Values(); !reflect.DeepEqual(got, b.Labels) {
		t.Errorf("Want: %v\nGot: %v\n", b.Labels, got)
	}
}

func TestPredictionFromTensorRank(t *testing.T) {
	x := ts.MustOfSlice([]float32{1, 2, 3})
	defer x.MustDrop()
	if _, err := torch.PredictionFromTensor(x); err == nil {
		t.Error("Want error for a rank-1 tensor")
	}
}

func TestBatchTensorShape(t *testing.T) {
	if _, err := torch.BatchTensor(&dataset.Batch{N: 1, C: 1, H: 2, W: 2, Images: []float32{1}}); err == nil {
		t.Error("Want error for a short buffer")
	}
	if _, err := torch.LabelTensor(&dataset.Batch{N: 1, C: 1, H: 1, W: 1, Images: []float32{1}}); err == nil {
		t.Error("Want error without labels")
	}
}

func TestPredictionFromUpsampledScores(t *testing.T) {
	x := ts.MustOfSlice([]float32{0.2, 0.8}).MustView([]int64{1, 2, 1, 1}, true)
	up := x.MustUpsampleNearest2d([]int64{2, 2}, nil, nil, true)
	defer up.MustDrop()

	pred, err := torch.PredictionFromTensor(up)
	if err != nil {
		t.Fatal(err)
	}
	if pred.N != 1 || pred.C != 2 || pred.H != 2 || pred.W != 2 {
		t.Errorf("Want shape: [1 2 2 2]\nGot: [%d %d %d %d]\n", pred.N, pred.C, pred.H, pred.W)
	}
	want := []int64{1, 1, 1, 1}
	if got := metric.Argmax(pred).Data; !reflect.DeepEqual(got, want) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
}
