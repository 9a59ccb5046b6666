package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

func TestParallelizeCoversEveryItem(t *testing.T) {
	testCases := []struct {
		name    string
		items   int
		workers int
	}{
		{name: "more items than workers", items: 1000, workers: 4},
		{name: "fewer items than workers", items: 3, workers: 16},
		{name: "single worker", items: 17, workers: 1},
		{name: "cpu default", items: 257, workers: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen := make([]int32, tc.items)
			err := Parallelize(tc.items, tc.workers, func(start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
				return nil
			})
			require.NoError(t, err)
			for i, c := range seen {
				assert.Equal(t, int32(1), c, "item %d visited %d times", i, c)
			}
		})
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	err := Parallelize(0, 4, func(start, end int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestParallelizePropagatesError(t *testing.T) {
	want := errors.New("bad partition")
	err := Parallelize(100, 4, func(start, end int) error {
		if start == 0 {
			return want
		}
		return nil
	})
	assert.True(t, errors.Is(err, want))
}

func TestParallelizeRecoversPanic(t *testing.T) {
	err := Parallelize(10, 2, func(start, end int) error {
		panic("kernel exploded")
	})
	require.Error(t, err)
	var panicErr *errors.PanicError
	assert.True(t, errors.As(err, &panicErr))
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int32
	err := ParallelizeWithThreshold(50, 100, 8, func(start, end int) error {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 50, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}
