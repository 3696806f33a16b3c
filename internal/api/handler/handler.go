package handler

import (
	"log/slog"

	"github.com/learnloop/mentor-be/internal/cache"
	"github.com/learnloop/mentor-be/internal/config"
	"github.com/learnloop/mentor-be/internal/events"
	"github.com/learnloop/mentor-be/internal/storage"
	"github.com/learnloop/mentor-be/shared/postgresql"
	"github.com/learnloop/mentor-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	DBClient  *postgresql.Client
	Storage   *storage.Storage
	JobsQueue *rabbitmq.Client
	Events    *events.Publisher
	Cache     *cache.TTLCache
	CacheTTL  config.CacheConfig
}

// JobHandler handles job submission and lifecycle HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	jobsQueue *rabbitmq.Client
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		jobsQueue: deps.JobsQueue,
	}
}

// LearningHandler handles the synchronous learning endpoints: quiz
// submission and the cached per-user read paths.
type LearningHandler struct {
	logger   *slog.Logger
	storage  *storage.Storage
	events   *events.Publisher
	cache    *cache.TTLCache
	cacheTTL config.CacheConfig
}

// NewLearningHandler creates a new LearningHandler instance
func NewLearningHandler(deps *Dependencies) *LearningHandler {
	return &LearningHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		events:   deps.Events,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
	}
}
