package metric

import (
	"gonum.org/v1/gonum/stat"
)

// Summary is the epoch-level view of a sequence of batch Results: every
// scalar is the arithmetic mean over batches, flood IoU is pooled over all
// qualifying samples.
type Summary struct {
	Batches int
	Samples int

	MeanIoU       float64
	IoUBackground float64
	IoUFlood      Mean

	PixelAccuracy    float64
	Dice             float64
	Precision        float64
	Recall           float64
	F1               float64
	BalancedAccuracy float64
	FloodPercentage  float64
}

// Aggregator accumulates batch Results. It is not safe for concurrent use.
type Aggregator struct {
	results []Result
}

// Add records one batch.
func (a *Aggregator) Add(r Result) {
	a.results = append(a.results, r)
}

// Len returns the number of recorded batches.
func (a *Aggregator) Len() int {
	return len(a.results)
}

// Reset drops every recorded batch.
func (a *Aggregator) Reset() {
	a.results = a.results[:0]
}

func (a *Aggregator) mean(f func(r Result) float64) float64 {
	if len(a.results) == 0 {
		return 0
	}
	vals := make([]float64, len(a.results))
	for i, r := range a.results {
		vals[i] = f(r)
	}
	return stat.Mean(vals, nil)
}

// Summary returns the aggregate of every recorded batch. An empty
// Aggregator yields a zero Summary.
func (a *Aggregator) Summary() Summary {
	s := Summary{Batches: len(a.results)}
	for _, r := range a.results {
		s.Samples += r.Samples
		s.IoUFlood = s.IoUFlood.Merge(r.IoUFlood)
	}
	s.MeanIoU = a.mean(func(r Result) float64 { return r.MeanIoU })
	s.IoUBackground = a.mean(func(r Result) float64 { return r.IoUBackground })
	s.PixelAccuracy = a.mean(func(r Result) float64 { return r.PixelAccuracy })
	s.Dice = a.mean(func(r Result) float64 { return r.Dice })
	s.Precision = a.mean(func(r Result) float64 { return r.Precision })
	s.Recall = a.mean(func(r Result) float64 { return r.Recall })
	s.F1 = a.mean(func(r Result) float64 { return r.F1 })
	s.BalancedAccuracy = a.mean(func(r Result) float64 { return r.BalancedAccuracy })
	s.FloodPercentage = a.mean(func(r Result) float64 { return r.FloodPercentage })
	return s
}
