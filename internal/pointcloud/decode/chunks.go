package decode

import (
	"golang.org/x/sync/errgroup"
)

// chunk is a half-open index range [start, end).
type chunk struct {
	start, end int
}

// partition splits [0, n) into consecutive chunks of at most size items.
func partition(n, size int) []chunk {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	chunks := make([]chunk, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, chunk{start: start, end: min(start+size, n)})
	}
	return chunks
}

// runChunks executes fn once per chunk on at most workers goroutines and
// waits for all of them. Chunks must only write to their own index range.
// Returns the first error any chunk reported; the remaining chunks still
// run to completion.
func runChunks(chunks []chunk, workers int, fn func(c chunk) error) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) == 1 || workers == 1 {
		var first error
		for _, c := range chunks {
			if err := fn(c); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, c := range chunks {
		g.Go(func() error {
			return fn(c)
		})
	}
	return g.Wait()
}
