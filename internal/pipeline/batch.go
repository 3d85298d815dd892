package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// Job is one independent image to embed a message into.
type Job struct {
	Name    string
	Src     []byte
	Message []byte
}

// Result is the outcome of a Job. Out is nil when Err is set.
type Result struct {
	Name string
	Out  []byte
	Err  error
}

// EmbedBatch embeds every job on a pool of workers and returns results in job
// order. Images are independent, so each one still runs single-threaded.
// workers <= 0 means runtime.NumCPU(). Jobs not started before ctx is done
// report ctx.Err().
func (p *Pipeline) EmbedBatch(ctx context.Context, jobs []Job, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobs))

	results := make([]Result, len(jobs))
	next := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range next {
				job := jobs[i]
				if err := ctx.Err(); err != nil {
					results[i] = Result{Name: job.Name, Err: err}
					continue
				}
				out, err := p.Embed(job.Src, job.Message)
				results[i] = Result{Name: job.Name, Out: out, Err: err}
			}
		}()
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}
