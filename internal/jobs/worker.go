package jobs

import (
	"context"
	"log"
	"time"
)

// pollTimeout bounds one polling pass. Indexing embeds every chunk of every
// claimed document, so the bound is generous, but a hung embedding provider
// must not stall the worker forever.
const pollTimeout = 5 * time.Minute

// JobProcessor runs one batch of due work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed polling interval.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

// NewWorker creates a Worker polling at the given interval.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called or ctx is cancelled.
// The first poll happens immediately so jobs enqueued before startup don't
// wait out a full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	log.Printf("index worker started, polling every %v", w.pollInterval)
	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("index worker stopped: context cancelled")
			return
		case <-w.stop:
			log.Println("index worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll runs one pass under a deadline.
func (w *Worker) poll(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, pollTimeout)
	defer cancel()

	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job poll failed: %v", err)
	}
}

// Stop stops the worker and waits for the in-flight poll to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
