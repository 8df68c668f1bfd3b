package prep

import (
	"context"
	"sync"
)

// runParallel executes fn for every index in [0, jobs) on a bounded worker
// pool. The first error cancels the remaining jobs and is returned; workers
// already mid-job finish their current item first. A canceled parent
// context surfaces as its error.
func runParallel(ctx context.Context, jobs, workers int, fn func(ctx context.Context, i int) error) error {
	if jobs == 0 {
		return ctx.Err()
	}

	if workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan int)
	errs := make(chan error, jobs)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range queue {
				if runCtx.Err() != nil {
					continue
				}

				if err := fn(runCtx, i); err != nil {
					errs <- err

					cancel()
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case queue <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(queue)

	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}

	return ctx.Err()
}
