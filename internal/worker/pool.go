package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// Job is a unit of work executed by a Worker.
type Job interface {
	Execute(ctx context.Context) error
	ID() string
}

// Func adapts a function to a Job.
type Func struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (f Func) ID() string                        { return f.Name }
func (f Func) Execute(ctx context.Context) error { return f.Fn(ctx) }

// Worker runs in its own goroutine and pulls jobs from its channel after
// registering it with the pool.
type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Quit       chan bool
	Wg         *sync.WaitGroup
	ctx        context.Context
	log        logrus.FieldLogger
}

// NewWorker creates a new Worker.
func NewWorker(ctx context.Context, id int, workerPool chan chan Job, wg *sync.WaitGroup, log logrus.FieldLogger) Worker {
	return Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Quit:       make(chan bool),
		Wg:         wg,
		ctx:        ctx,
		log:        log.WithField("worker", id),
	}
}

// Start makes the Worker listen for jobs on its JobChannel.
func (w Worker) Start() {
	w.Wg.Add(1)
	go func() {
		defer w.Wg.Done()
		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				log := w.log.WithField("job", job.ID())
				log.Debug("job started")
				if err := job.Execute(w.ctx); err != nil {
					log.WithError(err).Warn("job failed")
				} else {
					log.Debug("job finished")
				}
			case <-w.Quit:
				w.log.Debug("worker stopping")
				return
			}
		}
	}()
}

// Stop signals the worker to stop processing new jobs.
func (w Worker) Stop() {
	go func() {
		w.Quit <- true
	}()
}

// Dispatcher manages a pool of workers and dispatches jobs to them.
type Dispatcher struct {
	MaxWorkers int
	WorkerPool chan chan Job
	JobQueue   chan Job
	Workers    []Worker
	Wg         sync.WaitGroup
	Quit       chan bool

	log    logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(maxWorkers int, jobQueueSize int, log logrus.FieldLogger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		MaxWorkers: maxWorkers,
		WorkerPool: make(chan chan Job, maxWorkers),
		JobQueue:   make(chan Job, jobQueueSize),
		Workers:    make([]Worker, 0, maxWorkers),
		Quit:       make(chan bool),
		log:        log.WithField("component", "dispatcher"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the dispatcher and its workers.
func (d *Dispatcher) Run() {
	for i := 1; i <= d.MaxWorkers; i++ {
		worker := NewWorker(d.ctx, i, d.WorkerPool, &d.Wg, d.log)
		d.Workers = append(d.Workers, worker)
		worker.Start()
	}
	go d.dispatch()
	d.log.WithField("workers", d.MaxWorkers).Info("dispatcher running")
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.JobQueue:
			go func(job Job) {
				select {
				case jobChannel := <-d.WorkerPool:
					select {
					case jobChannel <- job:
					case <-d.ctx.Done():
					}
				case <-d.ctx.Done():
				}
			}(job)
		case <-d.Quit:
			return
		}
	}
}

// SubmitJob queues job without blocking.
func (d *Dispatcher) SubmitJob(job Job) error {
	if d.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case d.JobQueue <- job:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, job.ID())
	}
}

// Enqueue queues job, waiting for room until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	select {
	case d.JobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return ErrStopped
	}
}

// RunAll executes jobs on the pool and waits for them. errs[i] is the
// outcome of jobs[i]; jobs still pending when ctx ends report ctx.Err().
func (d *Dispatcher) RunAll(ctx context.Context, jobs []Job) []error {
	errs := make([]error, len(jobs))
	done := make([]bool, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		tracked := Func{Name: job.ID(), Fn: func(context.Context) error {
			defer wg.Done()
			err := job.Execute(ctx)
			mu.Lock()
			errs[i], done[i] = err, true
			mu.Unlock()
			return err
		}}
		if err := d.Enqueue(ctx, tracked); err != nil {
			wg.Done()
			mu.Lock()
			errs[i], done[i] = err, true
			mu.Unlock()
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
	case <-d.ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]error, len(jobs))
	for i := range jobs {
		switch {
		case done[i]:
			out[i] = errs[i]
		case ctx.Err() != nil:
			out[i] = ctx.Err()
		default:
			out[i] = ErrStopped
		}
	}
	return out
}

// Stop shuts down the dispatcher and waits for running jobs to return.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.cancel()
		close(d.Quit)
		for _, worker := range d.Workers {
			worker.Stop()
		}
		d.Wg.Wait()
		d.log.Info("dispatcher stopped")
	})
}
