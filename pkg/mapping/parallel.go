package mapping

import (
	"runtime"
	"sync"
)

// parallelFor splits [0, n) into contiguous batches and runs fn on them with
// up to workers goroutines. fn must only write to indices inside its batch.
func parallelFor(n, workers int, fn func(start, end int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	batch := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += batch {
		end := start + batch
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// progressReporter serialises progress callbacks from several workers.
type progressReporter struct {
	mu        sync.Mutex
	completed int
	total     int
	callback  ProgressCallback
}

func (p *progressReporter) add(n int) {
	if p == nil || p.callback == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed += n
	p.callback(p.completed, p.total)
}
