// Package batch runs independent jobs on a bounded worker pool.
package batch

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is one unit of work. Jobs must be independent; the pool gives no
// ordering guarantee.
type Job struct {
	Name string
	Run  func() error
}

// Run executes jobs on up to concurrency workers and returns the errors
// of the jobs that failed. A failed job does not stop the rest.
func Run(jobs []Job, concurrency int) []error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	in := make(chan Job, len(jobs))
	out := make(chan error, len(jobs))

	go func() {
		for _, j := range jobs {
			in <- j
		}
		close(in)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range in {
				if err := j.Run(); err != nil {
					log.Error().Err(err).Str("job", j.Name).Msg("Job failed")
					out <- err
				}
			}
		}()
	}
	wg.Wait()
	close(out)

	var errs []error
	for err := range out {
		errs = append(errs, err)
	}

	return errs
}
