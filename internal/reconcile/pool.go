package reconcile

import (
	"context"
	"log/slog"
	"sync"
)

type Job struct {
	OrderID string
	done    func()
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(context.Context, Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("reconcile worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("reconcile worker processing order", "worker_id", w.ID, "order_id", job.OrderID)
				processFunc(ctx, job)
				if job.done != nil {
					job.done()
				}
			case <-ctx.Done():
				w.Logger.Debug("reconcile worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Pool fans jobs out to a fixed set of workers. Each idle worker parks its job
// channel on workerPool and the dispatcher hands the next queued job to it.
type Pool struct {
	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewPool(maxWorkers, queueSize int, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = maxWorkers * 4
	}
	return &Pool{
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (p *Pool) Start(ctx context.Context, processFunc func(context.Context, Job)) {
	p.once.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)

		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(ctx, &p.wg, processFunc)
		}

		p.wg.Add(1)
		go p.dispatch(ctx)

		p.logger.Info("reconcile worker pool started", "max_workers", p.maxWorkers, "queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunBatch submits orderIDs and blocks until every one was processed or ctx ends.
func (p *Pool) RunBatch(ctx context.Context, orderIDs []string) error {
	var batch sync.WaitGroup
	for _, id := range orderIDs {
		batch.Add(1)
		job := Job{OrderID: id, done: batch.Done}
		select {
		case p.jobQueue <- job:
		case <-ctx.Done():
			batch.Done()
			return ctx.Err()
		}
	}

	finished := make(chan struct{})
	go func() {
		batch.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("reconcile worker pool shutdown complete")
}
