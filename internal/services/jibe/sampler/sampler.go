// Package sampler draws the per-round word assignment for a new session.
package sampler

import (
	"math/rand/v2"
	"strconv"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

// Source is the subset of *rand.Rand the sampler needs.
type Source interface {
	IntN(n int) int
}

var _ Source = (*rand.Rand)(nil)

// Sample returns count distinct integers in [1, poolSize]. Index i of the
// result is the word for round i+1.
//
// It runs a partial Fisher-Yates shuffle over the index array, so it does
// exactly count swaps no matter how close count is to poolSize.
func Sample(rng Source, poolSize, count int) ([]int, error) {
	if poolSize < 0 || count < 0 {
		return nil, apperrors.WithMetadata(
			apperrors.CodeSampleInvalidArgument,
			"pool size and count must not be negative",
			map[string]string{"PoolSize": strconv.Itoa(poolSize), "Count": strconv.Itoa(count)},
		)
	}
	if count > poolSize {
		return nil, apperrors.WithMetadata(
			apperrors.CodeSampleInvalidArgument,
			"cannot sample more words than the pool holds",
			map[string]string{"PoolSize": strconv.Itoa(poolSize), "Count": strconv.Itoa(count)},
		)
	}
	if rng == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "random source is required")
	}

	pool := make([]int, poolSize)
	for i := range pool {
		pool[i] = i + 1
	}
	for i := 0; i < count; i++ {
		j := i + rng.IntN(poolSize-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count:count], nil
}
