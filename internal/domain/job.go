package domain

import "time"

// Job status values. A job is immutable once it reaches a terminal status.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job kinds, one per background workflow.
const (
	JobKindOnboarding          = "onboarding"
	JobKindJourneyAdjustment   = "journey_adjustment"
	JobKindPerformanceAnalysis = "performance_analysis"
	JobKindQuizGeneration      = "quiz_generation"
	JobKindContentGeneration   = "content_generation"
	JobKindFeedback            = "feedback"
)

// Job is one asynchronous workflow invocation tracked by id.
// Progress is monotonically non-decreasing until the job is terminal.
type Job struct {
	JobID           string     `db:"job_id"`
	UserID          string     `db:"user_id"`
	Kind            string     `db:"kind"`
	Payload         string     `db:"payload"` // JSON string
	Status          string     `db:"status"`
	Progress        int        `db:"progress"`
	ProgressMessage string     `db:"progress_message"`
	Result          *string    `db:"result"` // JSON string, set on completion
	Error           *string    `db:"error"`
	CancelRequested bool       `db:"cancel_requested"`
	StartedAt       *time.Time `db:"started_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Terminal reports whether the job has reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// KnownJobKind reports whether kind names a registered workflow.
func KnownJobKind(kind string) bool {
	switch kind {
	case JobKindOnboarding, JobKindJourneyAdjustment, JobKindPerformanceAnalysis,
		JobKindQuizGeneration, JobKindContentGeneration, JobKindFeedback:
		return true
	}
	return false
}

// JobMessage is the queue payload pointing a worker at a job row.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
