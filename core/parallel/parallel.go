package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Workers resolves a requested thread count; values <= 0 mean one worker per CPU.
func Workers(requested int) int {
	if requested <= 0 {
		return runtime.NumCPU()
	}
	return requested
}

// Parallelize divides items into at most workers contiguous ranges and runs fn
// for each range (start, end) concurrently. The first error returned by any
// range is returned; a panic inside fn is converted to an error.
func Parallelize(items, workers int, fn func(start, end int) error) error {
	if items == 0 {
		return nil
	}

	numWorkers := Workers(workers)
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Ceiling division so every item is covered
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		g.Go(func() error {
			return errors.SafeExecute("parallel.Parallelize", func() error {
				return fn(start, end)
			})
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of
// items exceeds the threshold. Below it fn runs once over the whole range on
// the calling goroutine.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int) error) error {
	if items <= threshold || Workers(workers) == 1 {
		return errors.SafeExecute("parallel.ParallelizeWithThreshold", func() error {
			return fn(0, items)
		})
	}
	return Parallelize(items, workers, fn)
}
