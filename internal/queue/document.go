package queue

import (
	"time"

	"github.com/google/uuid"
)

// document is the persisted JSON layout. Field names and shapes match the
// queue files written by earlier console releases, so an upgraded machine
// picks up its queue where it left off.
type document struct {
	Queue           []jobRecord `json:"queue"`
	History         []jobRecord `json:"history"`
	CurrentJobIndex int         `json:"current_job_index"`
	IsRunning       bool        `json:"is_running"`
	IsPaused        bool        `json:"is_paused"`
	SavedTime       string      `json:"saved_time"`
}

type jobRecord struct {
	// ID was not written by earlier releases; records without one are
	// assigned a fresh ID at load.
	ID           string            `json:"id,omitempty"`
	FilePath     string            `json:"file_path"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	CreatedTime  string            `json:"created_time"`
	StartTime    *string           `json:"start_time"`
	EndTime      *string           `json:"end_time"`
	ErrorMessage *string           `json:"error_message"`
	Metadata     map[string]string `json:"metadata"`
}

func recordFromJob(job *Job) jobRecord {
	rec := jobRecord{
		ID:          job.ID,
		FilePath:    job.FilePath,
		Name:        job.Name,
		Status:      string(job.Status),
		CreatedTime: formatTime(job.CreatedAt),
		Metadata:    job.Metadata,
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]string{}
	}
	if job.StartedAt != nil {
		v := formatTime(*job.StartedAt)
		rec.StartTime = &v
	}
	if job.EndedAt != nil {
		v := formatTime(*job.EndedAt)
		rec.EndTime = &v
	}
	if job.ErrorMessage != "" {
		v := job.ErrorMessage
		rec.ErrorMessage = &v
	}
	return rec
}

func jobFromRecord(rec jobRecord) *Job {
	job := &Job{
		ID:       rec.ID,
		FilePath: rec.FilePath,
		Name:     rec.Name,
		Metadata: rec.Metadata,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Metadata == nil {
		job.Metadata = map[string]string{}
	}
	status, ok := ParseStatus(rec.Status)
	if !ok {
		status = StatusPending
	}
	job.Status = status
	if created, err := parseTime(rec.CreatedTime); err == nil {
		job.CreatedAt = created
	} else {
		job.CreatedAt = time.Now().UTC()
	}
	if rec.StartTime != nil {
		if started, err := parseTime(*rec.StartTime); err == nil {
			job.StartedAt = &started
		}
	}
	if rec.EndTime != nil {
		if ended, err := parseTime(*rec.EndTime); err == nil {
			job.EndedAt = &ended
		}
	}
	if rec.ErrorMessage != nil {
		job.ErrorMessage = *rec.ErrorMessage
	}
	return job
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	// Earlier releases wrote bare ISO-8601 without a zone designator.
	return time.Parse("2006-01-02T15:04:05.999999", value)
}
