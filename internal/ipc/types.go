package ipc

import (
	"time"

	"camqueue/internal/queue"
)

// JobView is the wire representation of a job for IPC clients.
type JobView struct {
	ID           string            `json:"id"`
	Position     int               `json:"position"`
	FilePath     string            `json:"file_path"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func viewFromJob(job *queue.Job, position int) JobView {
	return JobView{
		ID:           job.ID,
		Position:     position,
		FilePath:     job.FilePath,
		Name:         job.Name,
		Status:       string(job.Status),
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		EndedAt:      job.EndedAt,
		ErrorMessage: job.ErrorMessage,
		Metadata:     job.Metadata,
	}
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/queue status information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	QueueRunning   bool           `json:"queue_running"`
	QueuePaused    bool           `json:"queue_paused"`
	QueueStats     map[string]int `json:"queue_stats"`
	CurrentJob     *JobView       `json:"current_job,omitempty"`
	QueueFilePath  string         `json:"queue_file_path"`
	LockPath       string         `json:"lock_path"`
	ArchiveEnabled bool           `json:"archive_enabled"`
}

// QueueAddRequest enqueues a new job.
type QueueAddRequest struct {
	FilePath string `json:"file_path"`
	Name     string `json:"name"`
}

// QueueAddResponse returns the created job.
type QueueAddResponse struct {
	Job JobView `json:"job"`
}

// QueueListRequest lists active jobs, optionally filtered by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries in dispatch order.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// QueueRemoveRequest deletes a job by ID.
type QueueRemoveRequest struct {
	ID string `json:"id"`
}

// QueueRemoveResponse indicates whether the job existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueMoveRequest reorders the queue by position.
type QueueMoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// QueueMoveResponse indicates whether the move applied.
type QueueMoveResponse struct {
	Moved bool `json:"moved"`
}

// QueueHoldRequest suspends a pending job.
type QueueHoldRequest struct {
	ID string `json:"id"`
}

// QueueHoldResponse reports the job's status afterwards.
type QueueHoldResponse struct {
	Status string `json:"status"`
}

// QueueResumeRequest reinstates a held job.
type QueueResumeRequest struct {
	ID string `json:"id"`
}

// QueueResumeResponse reports the job's status afterwards.
type QueueResumeResponse struct {
	Status string `json:"status"`
}

// QueueSkipRequest retires a pending or in-flight job.
type QueueSkipRequest struct {
	ID string `json:"id"`
}

// QueueSkipResponse indicates the skip applied.
type QueueSkipResponse struct {
	Skipped bool `json:"skipped"`
}

// SkipCurrentRequest retires the job in flight.
type SkipCurrentRequest struct{}

// SkipCurrentResponse indicates whether a job was in flight.
type SkipCurrentResponse struct {
	Skipped bool `json:"skipped"`
}

// QueueClearCompletedRequest retires terminal jobs into history.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports the number retired.
type QueueClearCompletedResponse struct {
	Cleared int `json:"cleared"`
}

// QueueStartRequest begins (or resumes) dispatching.
type QueueStartRequest struct{}

// QueueStartResponse confirms the flag change.
type QueueStartResponse struct {
	Running bool `json:"running"`
}

// QueuePauseRequest suspends dispatching.
type QueuePauseRequest struct{}

// QueuePauseResponse confirms the flag change.
type QueuePauseResponse struct {
	Paused bool `json:"paused"`
}

// QueueStopRequest halts dispatching.
type QueueStopRequest struct{}

// QueueStopResponse confirms the flag change.
type QueueStopResponse struct {
	Stopped bool `json:"stopped"`
}

// HistoryListRequest lists retired jobs. Archived selects the full archive
// instead of the document's bounded history.
type HistoryListRequest struct {
	Archived bool `json:"archived"`
	Limit    int  `json:"limit"`
}

// HistoryListResponse contains retired jobs.
type HistoryListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// ExecutionFinishedRequest reports an externally observed outcome for the
// job in flight.
type ExecutionFinishedRequest struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
}

// ExecutionFinishedResponse acknowledges the report.
type ExecutionFinishedResponse struct {
	Accepted bool `json:"accepted"`
}

// LogTailRequest reads daemon log lines. A negative Offset tails the last
// Limit lines; a non-negative Offset reads forward from that byte position.
type LogTailRequest struct {
	Offset int64 `json:"offset"`
	Limit  int   `json:"limit"`
}

// LogTailResponse carries log lines and the offset to continue from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the test result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
