package transcribe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var errNoResult = errors.New("engine returned no result")

type job struct {
	ctx  context.Context
	path string
	done chan jobResult
}

type jobResult struct {
	res *Result
	err error
}

// QueueStats reports the current state of the inference queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the inference worker pool.
type WorkerPoolOptions struct {
	Engine    Engine // nil when loading failed
	Workers   int
	QueueSize int
	Timeout   time.Duration // per job, 0 = none
	Log       zerolog.Logger
}

// WorkerPool runs engine inference on dedicated goroutines so request
// handlers never block on more than Workers concurrent inferences.
type WorkerPool struct {
	jobs   chan job
	engine Engine
	opts   WorkerPoolOptions
	log    zerolog.Logger
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new inference worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	return &WorkerPool{
		jobs:   make(chan job, opts.QueueSize),
		engine: opts.Engine,
		opts:   opts,
		log:    opts.Log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("transcription worker pool started")
}

// Stop rejects new work, lets workers drain queued jobs and waits for them.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Ready reports whether an engine is loaded.
func (wp *WorkerPool) Ready() bool { return wp.engine != nil }

// Engine returns the loaded engine, or nil.
func (wp *WorkerPool) Engine() Engine { return wp.engine }

// Transcribe queues audioPath for inference and waits for the result.
// Returns ErrEngineUnavailable without an engine, ErrQueueFull when no slot
// is free, and the context error if ctx ends first.
func (wp *WorkerPool) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if wp.engine == nil {
		return nil, ErrEngineUnavailable
	}

	if wp.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.opts.Timeout)
		defer cancel()
	}

	j := job{ctx: ctx, path: audioPath, done: make(chan jobResult, 1)}
	if err := wp.enqueue(j); err != nil {
		return nil, err
	}

	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (wp *WorkerPool) enqueue(j job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrPoolStopped
	}
	select {
	case wp.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for j := range wp.jobs {
		res, err := wp.process(log, j)
		if err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).Str("path", j.path).Msg("transcription failed")
		} else {
			wp.completed.Add(1)
		}
		j.done <- jobResult{res: res, err: err}
	}
}

func (wp *WorkerPool) process(log zerolog.Logger, j job) (*Result, error) {
	// Caller already gave up while the job was queued.
	if err := j.ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := wp.engine.Transcribe(j.ctx, j.path)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errNoResult
	}

	log.Debug().
		Str("engine", wp.engine.Name()).
		Str("language", res.Language).
		Int("chars", len(res.Text)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("transcription complete")
	return res, nil
}
