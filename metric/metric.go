package metric

import (
	"github.com/pkg/errors"
)

// Eps is the smoothing term shared by every ratio that can hit 0/0.
const Eps = 1e-6

// NumClasses is the number of classes a prediction must carry:
// 0 = background, 1 = flood.
const NumClasses = 2

// ErrShape is returned when prediction and target layouts disagree.
var ErrShape = errors.New("metric: shape mismatch")

// Prediction holds raw class scores laid out as (N, C, H, W).
type Prediction struct {
	N, C, H, W int
	Data       []float32
}

// NewPrediction wraps a flat score buffer.
func NewPrediction(data []float32, n, c, h, w int) (Prediction, error) {
	if n*c*h*w != len(data) {
		return Prediction{}, errors.Wrapf(ErrShape, "prediction [%d %d %d %d] needs %d values, got %d", n, c, h, w, n*c*h*w, len(data))
	}
	return Prediction{N: n, C: c, H: h, W: w, Data: data}, nil
}

// Target holds integer class labels laid out as (N, H, W).
type Target struct {
	N, H, W int
	Data    []int64
}

// NewTarget wraps a flat label buffer.
func NewTarget(data []int64, n, h, w int) (Target, error) {
	if n*h*w != len(data) {
		return Target{}, errors.Wrapf(ErrShape, "target [%d %d %d] needs %d values, got %d", n, h, w, n*h*w, len(data))
	}
	return Target{N: n, H: h, W: w, Data: data}, nil
}

// Sample returns the labels of sample i.
func (t Target) Sample(i int) []int64 {
	size := t.H * t.W
	return t.Data[i*size : (i+1)*size]
}

// Argmax converts class scores to a class map by picking, for every pixel,
// the class with the highest score. Ties go to the lowest class index. The
// first NaN score wins over any number, matching torch.argmax.
func Argmax(p Prediction) Target {
	plane := p.H * p.W
	out := make([]int64, p.N*plane)
	for n := 0; n < p.N; n++ {
		base := n * p.C * plane
		for px := 0; px < plane; px++ {
			best := 0
			bestScore := p.Data[base+px]
			for c := 1; c < p.C && !isNaN(bestScore); c++ {
				if s := p.Data[base+c*plane+px]; s > bestScore || isNaN(s) {
					best, bestScore = c, s
				}
			}
			out[n*plane+px] = int64(best)
		}
	}
	return Target{N: p.N, H: p.H, W: p.W, Data: out}
}

func isNaN(f float32) bool { return f != f }

// confusion is the pixel tally of one sample.
type confusion struct {
	// per class intersection and union
	inter [NumClasses]int64
	union [NumClasses]int64

	// against class 1
	tp, tn, fp, fn int64

	correct, total int64
	predFlood      int64

	// sums of raw label values, used by Dice
	predSum, targetSum, prodSum int64
}

func tally(pred, target []int64) confusion {
	var c confusion
	c.total = int64(len(target))
	for i, p := range pred {
		t := target[i]
		if p == t {
			c.correct++
		}
		for k := int64(0); k < NumClasses; k++ {
			pk, tk := p == k, t == k
			if pk && tk {
				c.inter[k]++
			}
			if pk || tk {
				c.union[k]++
			}
		}
		switch {
		case p == 1 && t == 1:
			c.tp++
		case p == 0 && t == 0:
			c.tn++
		case p == 1 && t == 0:
			c.fp++
		case p == 0 && t == 1:
			c.fn++
		}
		if p == 1 {
			c.predFlood++
		}
		c.predSum += p
		c.targetSum += t
		c.prodSum += p * t
	}
	return c
}

// classify validates shapes and tallies every sample of the batch.
func classify(p Prediction, t Target) ([]confusion, error) {
	if p.N == 0 || p.H*p.W == 0 {
		return nil, errors.Wrap(ErrShape, "empty batch")
	}
	if p.C != NumClasses {
		return nil, errors.Wrapf(ErrShape, "expected %d classes, got %d", NumClasses, p.C)
	}
	if p.N != t.N || p.H != t.H || p.W != t.W {
		return nil, errors.Wrapf(ErrShape, "prediction [%d %d %d %d] vs target [%d %d %d]", p.N, p.C, p.H, p.W, t.N, t.H, t.W)
	}
	if len(p.Data) != p.N*p.C*p.H*p.W || len(t.Data) != t.N*t.H*t.W {
		return nil, errors.Wrap(ErrShape, "buffer length does not match dimensions")
	}

	cls := Argmax(p)
	cms := make([]confusion, p.N)
	for i := range cms {
		cms[i] = tally(cls.Sample(i), t.Sample(i))
	}
	return cms, nil
}

func pixelAccuracy(c confusion) float64 {
	return float64(c.correct) / float64(c.total)
}

func dice(c confusion) float64 {
	return 2 * float64(c.prodSum) / (float64(c.predSum) + float64(c.targetSum) + Eps)
}

func precision(c confusion) float64 {
	return float64(c.tp) / (float64(c.tp) + float64(c.fp) + Eps)
}

func recall(c confusion) float64 {
	return float64(c.tp) / (float64(c.tp) + float64(c.fn) + Eps)
}

func f1(c confusion) float64 {
	p, r := precision(c), recall(c)
	return 2 * (p * r) / (p + r + Eps)
}

func sensitivity(c confusion) float64 {
	return float64(c.tp) / (float64(c.tp+c.fn) + Eps)
}

func specificity(c confusion) float64 {
	return float64(c.tn) / (float64(c.tn+c.fp) + Eps)
}

func floodPercentage(c confusion) float64 {
	return float64(c.predFlood) / float64(c.total) * 100
}
