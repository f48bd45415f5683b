// Package parallel provides bounded worker-pool dispatch for per-fold and
// per-candidate units of work.
//
// The degree of parallelism follows the façade's n_jobs convention: negative
// means all available cores, 1 means run serially on the calling goroutine.
// Each unit writes its result into a caller-indexed slot, so joined results
// are always in submission order regardless of completion order.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Workers resolves an n_jobs value into a concrete worker count.
func Workers(nJobs int) int {
	if nJobs < 0 {
		return runtime.NumCPU()
	}
	if nJobs == 0 {
		return 1
	}
	return nJobs
}

// Run executes fn(0) .. fn(n-1) on a pool bounded by Workers(nJobs) and
// blocks until every unit has completed. With one worker the units run
// serially in order on the calling goroutine.
func Run(n, nJobs int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := Workers(nJobs)
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i := 0; i < n; i++ {
		p.Go(func() {
			fn(i)
		})
	}
	p.Wait()
}
