// Package recorder applies store writes off the overlay's update loop.
//
// The pool decouples persistence from the UI hot path: a slow disk never
// blocks rendering, and a failed write degrades to a log line instead of a
// visible error.
package recorder

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 64
)

// Job is one persistence action. Name identifies it in logs; Fn does the
// write and must capture everything it needs.
type Job struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config is the configuration options for the recorder pool.
type Config struct {
	// NumWorkers is the number of background workers (defaults to 1, which
	// keeps writes ordered).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool runs persistence jobs asynchronously.
type Pool struct {
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool starts the worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c == nil {
		c = &Config{}
	}

	numWorkers := c.NumWorkers
	if numWorkers == 0 {
		numWorkers = defaultNumWorkers
	}

	queueSize := c.QueueSize
	if queueSize == 0 {
		queueSize = defaultJobQueueSize
	}

	if numWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", numWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		queue:  make(chan Job, queueSize),
		logger: logger,
	}

	p.wg.Add(int(numWorkers))
	for i := uint(0); i < numWorkers; i++ {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job. Returns true if queued, false if the queue was full
// and the job was dropped. Drops are logged; conversation state lives in
// memory either way, so a dropped write loses history but never correctness.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("recording queued", zap.String("job", job.Name))
		return true
	default:
		p.logger.Error("recording dropped, queue full", zap.String("job", job.Name))
		return false
	}
}

// Close signals workers to stop and waits for queued jobs to drain.
// Call it during shutdown after the last Enqueue.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("recorder worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		if job.Fn == nil {
			continue
		}
		if err := job.Fn(context.Background()); err != nil {
			p.logger.Warn("recording failed",
				zap.String("job", job.Name),
				zap.Error(err),
			)
		}
	}

	p.logger.Debug("recorder worker stopped", zap.Uint("worker_id", id))
}
