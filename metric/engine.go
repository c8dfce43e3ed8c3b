package metric

import (
	"gonum.org/v1/gonum/stat"
)

// Mean is a running (sum, count) pair. It is used where the number of
// contributing samples can differ from the batch size.
type Mean struct {
	Sum   float64
	Count int
}

// Add adds one observation.
func (m *Mean) Add(v float64) {
	m.Sum += v
	m.Count++
}

// Merge returns the pooled mean of m and o.
func (m Mean) Merge(o Mean) Mean {
	return Mean{Sum: m.Sum + o.Sum, Count: m.Count + o.Count}
}

// Value returns Sum/Count, or 0 when nothing was added.
func (m Mean) Value() float64 {
	if m.Count == 0 {
		return 0
	}
	return m.Sum / float64(m.Count)
}

// Result is the set of statistics for one batch. Every field except
// IoUFlood is a mean over the samples of the batch.
type Result struct {
	Samples int

	MeanIoU       float64
	IoUBackground float64
	// IoUFlood only counts samples where both classes have a non-empty union.
	IoUFlood Mean

	PixelAccuracy    float64
	Dice             float64
	Precision        float64
	Recall           float64
	F1               float64
	BalancedAccuracy float64

	// FloodPercentage is the share of pixels predicted as flood, in percent.
	FloodPercentage float64
}

// IoUResult groups the IoU family of statistics.
type IoUResult struct {
	Mean       float64
	Background float64
	Flood      Mean
}

// Engine computes batch statistics. With the zero value a class whose
// union is empty scores 0.
type Engine struct {
	// EmptyUnion is the IoU assigned to a class that appears neither in the
	// prediction nor in the target of a sample.
	EmptyUnion float64
}

// batchMean evaluates a per-sample statistic for every sample of a batch
// and returns its arithmetic mean.
func batchMean(cms []confusion, f func(c confusion) float64) float64 {
	vals := make([]float64, len(cms))
	for i, c := range cms {
		vals[i] = f(c)
	}
	return stat.Mean(vals, nil)
}

// classIoU returns per-class IoU for a sample and whether every class had
// a non-empty union.
func (e Engine) classIoU(c confusion) (iou [NumClasses]float64, valid bool) {
	valid = true
	for k := 0; k < NumClasses; k++ {
		if c.union[k] > 0 {
			iou[k] = float64(c.inter[k]) / float64(c.union[k])
		} else {
			iou[k] = e.EmptyUnion
			valid = false
		}
	}
	return iou, valid
}

func (e Engine) iou(cms []confusion) IoUResult {
	var r IoUResult
	means := make([]float64, len(cms))
	background := make([]float64, len(cms))
	for i, c := range cms {
		iou, ok := e.classIoU(c)
		means[i] = stat.Mean(iou[:], nil)
		background[i] = iou[0]
		if ok {
			r.Flood.Add(iou[1])
		}
	}
	r.Mean = stat.Mean(means, nil)
	r.Background = stat.Mean(background, nil)
	return r
}

// Compute returns every statistic for the batch in one pass over the pixels.
func (e Engine) Compute(p Prediction, t Target) (Result, error) {
	cms, err := classify(p, t)
	if err != nil {
		return Result{}, err
	}

	iou := e.iou(cms)
	return Result{
		Samples:          len(cms),
		MeanIoU:          iou.Mean,
		IoUBackground:    iou.Background,
		IoUFlood:         iou.Flood,
		PixelAccuracy:    batchMean(cms, pixelAccuracy),
		Dice:             batchMean(cms, dice),
		Precision:        batchMean(cms, precision),
		Recall:           batchMean(cms, recall),
		F1:               batchMean(cms, f1),
		BalancedAccuracy: (batchMean(cms, sensitivity) + batchMean(cms, specificity)) / 2,
		FloodPercentage:  batchMean(cms, floodPercentage),
	}, nil
}

// IoU computes mean, background and flood IoU.
func (e Engine) IoU(p Prediction, t Target) (IoUResult, error) {
	cms, err := classify(p, t)
	if err != nil {
		return IoUResult{}, err
	}
	return e.iou(cms), nil
}

// Compute evaluates a batch with the default Engine.
func Compute(p Prediction, t Target) (Result, error) {
	return Engine{}.Compute(p, t)
}

// IoU evaluates the IoU family with the default Engine.
func IoU(p Prediction, t Target) (IoUResult, error) {
	return Engine{}.IoU(p, t)
}

func reduce(p Prediction, t Target, f func(c confusion) float64) (float64, error) {
	cms, err := classify(p, t)
	if err != nil {
		return 0, err
	}
	return batchMean(cms, f), nil
}

// PixelAccuracy is the share of correctly classified pixels.
func PixelAccuracy(p Prediction, t Target) (float64, error) {
	return reduce(p, t, pixelAccuracy)
}

// Dice is 2*|P∩T| / (|P|+|T|+Eps).
func Dice(p Prediction, t Target) (float64, error) {
	return reduce(p, t, dice)
}

// PrecisionRecall computes flood precision and recall.
func PrecisionRecall(p Prediction, t Target) (prec, rec float64, err error) {
	cms, err := classify(p, t)
	if err != nil {
		return 0, 0, err
	}
	return batchMean(cms, precision), batchMean(cms, recall), nil
}

// F1Score is the harmonic mean of flood precision and recall.
func F1Score(p Prediction, t Target) (float64, error) {
	return reduce(p, t, f1)
}

// BalancedAccuracy averages the batch sensitivity and specificity.
func BalancedAccuracy(p Prediction, t Target) (float64, error) {
	cms, err := classify(p, t)
	if err != nil {
		return 0, err
	}
	return (batchMean(cms, sensitivity) + batchMean(cms, specificity)) / 2, nil
}

// FloodPercentages returns, per sample, the share of pixels predicted as
// flood in percent. It needs no ground truth.
func FloodPercentages(p Prediction) []float64 {
	if p.N == 0 || p.H*p.W == 0 {
		return nil
	}
	cls := Argmax(p)
	plane := p.H * p.W
	vals := make([]float64, p.N)
	for i := range vals {
		var n int
		for _, v := range cls.Sample(i) {
			if v == 1 {
				n++
			}
		}
		vals[i] = float64(n) / float64(plane) * 100
	}
	return vals
}

// FloodPercentage returns the batch mean of FloodPercentages.
func FloodPercentage(p Prediction) float64 {
	vals := FloodPercentages(p)
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}
