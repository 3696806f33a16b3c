package dto

type SubmitJobRequest struct {
	UserID  string                 `json:"user_id" binding:"required"`
	Kind    string                 `json:"kind" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type ListJobsRequest struct {
	UserID   string `form:"user_id"`
	Kind     string `form:"kind"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID           string  `json:"job_id"`
	UserID          string  `json:"user_id"`
	Kind            string  `json:"kind"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	ProgressMessage string  `json:"progress_message,omitempty"`
	Result          *string `json:"result,omitempty"`
	Error           *string `json:"error,omitempty"`
	StartedAt       *string `json:"started_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}
