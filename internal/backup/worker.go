package backup

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskcore/internal/blob"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrQueueFull is returned by Enqueue when the worker is saturated.
var ErrQueueFull = errors.New("export queue full")

// Job tracks one asynchronous export.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifact    *blob.Info `json:"artifact,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j *Job) copy() Job {
	out := *j
	if j.Artifact != nil {
		artifact := *j.Artifact
		artifact.Metadata = blob.CloneMetadata(artifact.Metadata)
		out.Artifact = &artifact
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// Worker runs exports off the caller's goroutine, one at a time.
type Worker struct {
	exporter *Exporter
	logger   *zap.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker with room for queueSize pending jobs.
func NewWorker(exporter *Exporter, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		exporter: exporter,
		logger:   exporter.logger,
		queue:    make(chan string, queueSize),
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job, bounded by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue schedules an export and returns the queued job.
func (w *Worker) Enqueue(requestedBy string) (Job, error) {
	now := w.exporter.now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[job.ID] = job
	queued := job.copy()
	w.mu.Unlock()

	select {
	case w.queue <- job.ID:
		return queued, nil
	default:
		w.mu.Lock()
		delete(w.jobs, job.ID)
		w.mu.Unlock()
		return Job{}, ErrQueueFull
	}
}

// Job returns a copy of the job with id.
func (w *Worker) Job(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(id string) {
	w.update(id, func(j *Job) { j.Status = StatusRunning })
	info, err := w.exporter.Export(w.ctx)
	if err != nil {
		w.logger.Error("export job failed", zap.String("job_id", id), zap.Error(err))
		w.update(id, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
			done := j.UpdatedAt
			j.CompletedAt = &done
		})
		return
	}
	w.update(id, func(j *Job) {
		j.Status = StatusSucceeded
		j.Artifact = &info
		done := j.UpdatedAt
		j.CompletedAt = &done
	})
}

func (w *Worker) update(id string, mutate func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	job, ok := w.jobs[id]
	if !ok {
		return
	}
	job.UpdatedAt = w.exporter.now().UTC()
	mutate(job)
}
