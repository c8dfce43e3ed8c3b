package report

import (
	"github.com/sugarme/floodseg/metric"
)

// BatchRecord is the flat form of one batch Result.
type BatchRecord struct {
	Split            string  `csv:"split"`
	Epoch            int     `csv:"epoch"`
	Batch            int     `csv:"batch"`
	Samples          int     `csv:"samples"`
	MeanIoU          float64 `csv:"miou"`
	IoUBackground    float64 `csv:"iou_background"`
	IoUFloodSum      float64 `csv:"iou_flood_sum"`
	IoUFloodCount    int     `csv:"iou_flood_count"`
	PixelAccuracy    float64 `csv:"accuracy"`
	Dice             float64 `csv:"dice"`
	Precision        float64 `csv:"precision"`
	Recall           float64 `csv:"recall"`
	F1               float64 `csv:"f1"`
	BalancedAccuracy float64 `csv:"balanced_accuracy"`
	FloodPercentage  float64 `csv:"flood_percentage"`
}

// NewBatchRecord flattens r.
func NewBatchRecord(split string, epoch, batch int, r metric.Result) BatchRecord {
	return BatchRecord{
		Split:            split,
		Epoch:            epoch,
		Batch:            batch,
		Samples:          r.Samples,
		MeanIoU:          r.MeanIoU,
		IoUBackground:    r.IoUBackground,
		IoUFloodSum:      r.IoUFlood.Sum,
		IoUFloodCount:    r.IoUFlood.Count,
		PixelAccuracy:    r.PixelAccuracy,
		Dice:             r.Dice,
		Precision:        r.Precision,
		Recall:           r.Recall,
		F1:               r.F1,
		BalancedAccuracy: r.BalancedAccuracy,
		FloodPercentage:  r.FloodPercentage,
	}
}

// EpochRecord is the flat form of an epoch Summary.
type EpochRecord struct {
	Split            string  `csv:"split"`
	Epoch            int     `csv:"epoch"`
	Batches          int     `csv:"batches"`
	Samples          int     `csv:"samples"`
	MeanIoU          float64 `csv:"miou"`
	IoUBackground    float64 `csv:"iou_background"`
	IoUFlood         float64 `csv:"iou_flood"`
	IoUFloodCount    int     `csv:"iou_flood_count"`
	PixelAccuracy    float64 `csv:"accuracy"`
	Dice             float64 `csv:"dice"`
	Precision        float64 `csv:"precision"`
	Recall           float64 `csv:"recall"`
	F1               float64 `csv:"f1"`
	BalancedAccuracy float64 `csv:"balanced_accuracy"`
	FloodPercentage  float64 `csv:"flood_percentage"`
}

// NewEpochRecord flattens s.
func NewEpochRecord(split string, epoch int, s metric.Summary) EpochRecord {
	return EpochRecord{
		Split:            split,
		Epoch:            epoch,
		Batches:          s.Batches,
		Samples:          s.Samples,
		MeanIoU:          s.MeanIoU,
		IoUBackground:    s.IoUBackground,
		IoUFlood:         s.IoUFlood.Value(),
		IoUFloodCount:    s.IoUFlood.Count,
		PixelAccuracy:    s.PixelAccuracy,
		Dice:             s.Dice,
		Precision:        s.Precision,
		Recall:           s.Recall,
		F1:               s.F1,
		BalancedAccuracy: s.BalancedAccuracy,
		FloodPercentage:  s.FloodPercentage,
	}
}

// Recorder receives evaluation records.
type Recorder interface {
	RecordBatch(BatchRecord) error
	RecordEpoch(EpochRecord) error
	Close() error
}

type multi []Recorder

// Multi fans records out to every recorder in order, stopping at the first
// error.
func Multi(rs ...Recorder) Recorder {
	return multi(rs)
}

func (m multi) RecordBatch(r BatchRecord) error {
	for _, rec := range m {
		if err := rec.RecordBatch(r); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) RecordEpoch(r EpochRecord) error {
	for _, rec := range m {
		if err := rec.RecordEpoch(r); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var first error
	for _, rec := range m {
		if err := rec.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
