package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per CPU core at most,
// and runs fn on each range (start, end) concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn(i) for every i in [0, n). The calls run concurrently when
// cost exceeds threshold and sequentially otherwise, so small inputs do not
// pay for goroutines.
//
// Every index is visited even when some calls fail. The returned error is the
// one from the lowest failing index, which makes the result independent of
// scheduling.
func ForEach(n, cost, threshold int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}

	errs := make([]error, n)
	if n == 1 || cost <= threshold {
		for i := 0; i < n; i++ {
			errs[i] = fn(i)
		}
	} else {
		Parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				errs[i] = fn(i)
			}
		})
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
