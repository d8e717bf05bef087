package assistant

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/glancelabs/glance/pkg/capture"
	"github.com/glancelabs/glance/pkg/vision"
)

// Asker is the surface the Runner drives. *Assistant satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string, shot capture.Shot, prior []Turn) (StructuredReply, vision.Usage, error)
}

// Query is one unit of work for the Runner. Prior must be a snapshot taken
// when the query was submitted; the Runner never reads shared state.
type Query struct {
	Question   string
	Prior      []Turn
	Screenshot bool
}

// Outcome is the result of one query. Gen identifies which submission it
// answers, letting the UI drop results for dismissed requests.
type Outcome struct {
	Gen      uint64
	Question string
	Reply    StructuredReply
	Usage    vision.Usage
	Err      error
}

type runnerJob struct {
	ctx     context.Context
	query   Query
	gen     uint64
	results chan<- Outcome
}

// Runner serializes asks through a single worker goroutine so the UI thread
// never blocks on capture or network. One query runs at a time; Submit
// returns ErrBusy rather than queueing a second.
type Runner struct {
	asker    Asker
	capturer capture.Capturer
	logger   *zap.Logger

	jobs chan runnerJob
	wg   sync.WaitGroup

	mu   sync.Mutex
	busy bool
	gen  uint64
}

// NewRunner starts the worker. Callers own Close.
func NewRunner(asker Asker, capturer capture.Capturer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		asker:    asker,
		capturer: capturer,
		logger:   logger,
		jobs:     make(chan runnerJob, 1),
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// Submit hands a query to the worker. It returns a channel that will carry
// exactly one Outcome, plus the generation number stamped on that outcome.
// While a query is in flight Submit returns ErrBusy.
func (r *Runner) Submit(ctx context.Context, q Query) (<-chan Outcome, uint64, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, 0, ErrBusy
	}
	r.busy = true
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	results := make(chan Outcome, 1)
	r.jobs <- runnerJob{ctx: ctx, query: q, gen: gen, results: results}
	return results, gen, nil
}

// Close stops the worker after any in-flight query finishes. Submit must not
// be called after Close.
func (r *Runner) Close() {
	close(r.jobs)
	r.wg.Wait()
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for job := range r.jobs {
		outcome := r.run(job)

		// Clear busy before delivering so the receiver can submit the next
		// query as soon as it sees the outcome.
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()

		// Buffered, never blocks.
		job.results <- outcome

		if outcome.Err != nil {
			r.logger.Debug("query failed",
				zap.Uint64("gen", outcome.Gen),
				zap.Error(outcome.Err))
		}
	}
}

func (r *Runner) run(job runnerJob) Outcome {
	out := Outcome{Gen: job.gen, Question: job.query.Question}

	var shot capture.Shot
	if job.query.Screenshot && r.capturer != nil {
		var err error
		shot, err = r.capturer.Capture(job.ctx)
		if err != nil {
			out.Err = err
			return out
		}
	}

	out.Reply, out.Usage, out.Err = r.asker.Ask(job.ctx, job.query.Question, shot, job.query.Prior)
	return out
}
