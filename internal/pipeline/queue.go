package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
)

// Job is one queued document.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

// ResultFunc receives the outcome of one processed job.
type ResultFunc func(job Job, resp *aggregate.Response, err error)

// Queue fans queued documents out to a fixed pool of pipeline workers.
type Queue struct {
	proc    *Processor
	logger  *slog.Logger
	handle  ResultFunc
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, handle ResultFunc, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		handle:  handle,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					resp, err := q.proc.Process(ctx, job.Path)
					cancel()

					if err != nil {
						q.logger.Error("queue.job.failed",
							"worker_id", workerID, "path", job.Path, "err", err)
					} else {
						q.logger.Info("queue.job.ok",
							"worker_id", workerID, "path", job.Path,
							"fields", len(resp.ExtractedFields))
					}
					if q.handle != nil {
						q.handle(job, resp, err)
					}
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue adds a document to the queue, blocking when it is full.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full", "path", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs to drain.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
