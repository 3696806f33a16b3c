package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/learnloop/mentor-be/internal/agents"
	"github.com/learnloop/mentor-be/internal/events"
	"github.com/learnloop/mentor-be/internal/storage"
	"github.com/learnloop/mentor-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Storage           *storage.Storage
	RabbitClient      *rabbitmq.Client
	Registry          *agents.Registry
	Events            *events.Publisher
	WorkerID          string
	Concurrency       int
	MaxJobs           int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
}

// Worker consumes job messages and runs the workflow bound to each kind
type Worker struct {
	logger            *slog.Logger
	storage           *storage.Storage
	rabbitClient      *rabbitmq.Client
	registry          *agents.Registry
	events            *events.Publisher
	workerID          string
	concurrency       int
	maxJobs           int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration

	jobsChan chan *dispatch
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:            cfg.Logger,
		storage:           cfg.Storage,
		rabbitClient:      cfg.RabbitClient,
		registry:          cfg.Registry,
		events:            cfg.Events,
		workerID:          cfg.WorkerID,
		concurrency:       cfg.Concurrency,
		maxJobs:           cfg.MaxJobs,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		jobsChan:          make(chan *dispatch),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. It blocks until the context
// is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker pool, waiting for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
