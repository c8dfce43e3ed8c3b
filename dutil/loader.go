package dutil

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Dataset is anything that can load an item by position.
type Dataset[T any] interface {
	Len() int
	Item(idx int) (T, error)
}

// DataLoader loads the items of each sampled batch, optionally in parallel.
// Items are returned in sampler order whatever the scheduling.
type DataLoader[T any] struct {
	ds      Dataset[T]
	sampler *BatchSampler
	workers int
}

// Option configures a DataLoader.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers sets how many items of a batch load concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewDataLoader creates a DataLoader over ds driven by s.
func NewDataLoader[T any](ds Dataset[T], s *BatchSampler, opts ...Option) (*DataLoader[T], error) {
	if ds == nil || s == nil {
		return nil, errors.New("data loader needs a dataset and a sampler")
	}
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &DataLoader[T]{ds: ds, sampler: s, workers: o.workers}, nil
}

// Len returns the number of batches per pass.
func (dl *DataLoader[T]) Len() int { return dl.sampler.Len() }

// HasNext reports whether another batch is available.
func (dl *DataLoader[T]) HasNext() bool { return dl.sampler.HasNext() }

// Reset rewinds the loader for a new pass.
func (dl *DataLoader[T]) Reset() { dl.sampler.Reset() }

// Next loads the next batch. The first load error aborts the batch.
func (dl *DataLoader[T]) Next(ctx context.Context) ([]T, error) {
	idx, err := dl.sampler.Next()
	if err != nil {
		return nil, err
	}

	items := make([]T, len(idx))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dl.workers)
	for i, pos := range idx {
		i, pos := i, pos
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := dl.ds.Item(pos)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
