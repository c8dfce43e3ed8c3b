package dutil

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// BatchSampler splits the positions [0, n) into batches.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool

	rng     *rand.Rand
	indices []int
	pos     int
}

// NewBatchSampler creates a sampler over n positions. With dropLast the
// final partial batch is skipped; with shuffle the order is re-drawn on
// every Reset.
func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid sample count %d", n)
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("invalid batch size %d", batchSize)
	}
	s := &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.Reset()
	return s, nil
}

// Seed makes the shuffle order reproducible and restarts the sampler.
func (s *BatchSampler) Seed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.Reset()
}

// Reset rewinds the sampler.
func (s *BatchSampler) Reset() {
	s.indices = make([]int, s.n)
	for i := range s.indices {
		s.indices[i] = i
	}
	if s.shuffle {
		s.rng.Shuffle(len(s.indices), func(i, j int) {
			s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
		})
	}
	s.pos = 0
}

// Len returns the number of batches per pass.
func (s *BatchSampler) Len() int {
	if s.dropLast {
		return s.n / s.batchSize
	}
	return (s.n + s.batchSize - 1) / s.batchSize
}

// HasNext reports whether another batch is available.
func (s *BatchSampler) HasNext() bool {
	remain := s.n - s.pos
	if s.dropLast {
		return remain >= s.batchSize
	}
	return remain > 0
}

// Next returns the positions of the next batch.
func (s *BatchSampler) Next() ([]int, error) {
	if !s.HasNext() {
		return nil, errors.New("batch sampler exhausted")
	}
	end := s.pos + s.batchSize
	if end > s.n {
		end = s.n
	}
	batch := append([]int(nil), s.indices[s.pos:end]...)
	s.pos = end
	return batch, nil
}
