// Package workpool runs batches of independent jobs on a fixed number of
// goroutines, and blocks the caller until the whole batch is done.
package workpool

import(
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abworrall/tiepoint/pkg/logger"
)

type Pool struct {
	threads int
	log     logger.ILogger
}

func New(threads int, log logger.ILogger) (*Pool, error) {
	if threads <= 0 {
		return nil, fmt.Errorf("thread count must be positive, got %d", threads)
	}
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Pool{threads: threads, log: log}, nil
}

func (p *Pool)Threads() int { return p.threads }

// Run calls job(i) for every i in [0,n), spread over the pool's workers,
// and returns once all n calls have returned. Workers take the next index
// from a shared counter; each index is handed out exactly once, so jobs
// can write to slot i of a results slice without locking. A batch can't
// be cancelled once started.
func (p *Pool)Run(name string, n int, job func(i int)) {
	if n <= 0 {
		return
	}

	var next atomic.Int64
	var progress atomic.Int32

	var mu sync.Mutex
	finished := sync.NewCond(&mu)
	done := 0

	workers := p.threads
	if workers > n { workers = n }

	for w:=0; w<workers; w++ {
		go func() {
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return
				}

				job(i)

				mu.Lock()
				done++
				d := done
				if done == n {
					finished.Broadcast()
				}
				mu.Unlock()

				// Log each time another 10% is done
				pct := int32(d * 100 / n)
				if old := progress.Load(); pct/10 > old/10 && progress.CompareAndSwap(old, pct) {
					p.log.Debugf("%s: %d%% (%d/%d)", name, pct, d, n)
				}
			}
		}()
	}

	mu.Lock()
	for done < n {
		finished.Wait()
	}
	mu.Unlock()
}
