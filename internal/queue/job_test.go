package queue

import (
	"errors"
	"testing"
	"time"
)

func TestNewJobDefaultsNameToBaseName(t *testing.T) {
	job := NewJob("/home/cnc/programs/flange.ngc", "")
	if job.Name != "flange.ngc" {
		t.Fatalf("expected base-name default, got %q", job.Name)
	}
	if job.Status != StatusPending {
		t.Fatalf("new job should be pending, got %s", job.Status)
	}
	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Metadata == nil {
		t.Fatal("metadata map should never be nil")
	}
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")

	if err := job.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.Status != StatusRunning || job.StartedAt == nil {
		t.Fatalf("unexpected state after start: %#v", job)
	}

	if err := job.complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if job.Status != StatusCompleted || job.EndedAt == nil {
		t.Fatalf("unexpected state after complete: %#v", job)
	}
}

func TestJobRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*Job)
		act   func(*Job) error
	}{
		{"start completed", func(j *Job) { j.Status = StatusCompleted }, (*Job).start},
		{"start running", func(j *Job) { j.Status = StatusRunning }, (*Job).start},
		{"complete pending", func(j *Job) {}, (*Job).complete},
		{"fail pending", func(j *Job) {}, func(j *Job) error { return j.fail("boom") }},
		{"skip completed", func(j *Job) { j.Status = StatusCompleted }, (*Job).skip},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := NewJob("/tmp/part.ngc", "part")
			tc.setup(job)
			if err := tc.act(job); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestHoldAndResumeAreSilentNoOpsOutsideTheirStates(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")

	if !job.hold() {
		t.Fatal("hold on pending should apply")
	}
	if job.Status != StatusHeld {
		t.Fatalf("expected held, got %s", job.Status)
	}
	if job.hold() {
		t.Fatal("hold on held should be a no-op")
	}
	if !job.resume() {
		t.Fatal("resume on held should apply")
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.resume() {
		t.Fatal("resume on pending should be a no-op")
	}

	job.Status = StatusRunning
	if job.hold() || job.resume() {
		t.Fatal("running jobs must be untouched by hold/resume")
	}
	if job.Status != StatusRunning {
		t.Fatalf("running job mutated: %s", job.Status)
	}
}

func TestFailRecordsMessage(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")
	if err := job.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := job.fail("spindle stall"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if job.Status != StatusFailed || job.ErrorMessage != "spindle stall" {
		t.Fatalf("unexpected state after fail: %#v", job)
	}
}

func TestDurationRequiresBothTimestamps(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")
	if job.Duration() != 0 {
		t.Fatal("duration without timestamps should be zero")
	}

	start := time.Now().Add(-90 * time.Second)
	end := start.Add(90 * time.Second)
	job.StartedAt = &start
	job.EndedAt = &end
	if got := job.Duration(); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")
	job.Metadata["material"] = "aluminum"
	now := time.Now()
	job.StartedAt = &now

	clone := job.Clone()
	clone.Metadata["material"] = "steel"
	*clone.StartedAt = now.Add(time.Hour)

	if job.Metadata["material"] != "aluminum" {
		t.Fatal("clone shares metadata map")
	}
	if !job.StartedAt.Equal(now) {
		t.Fatal("clone shares start time pointer")
	}
}

func TestParseStatusNormalizes(t *testing.T) {
	status, ok := ParseStatus("  Running ")
	if !ok || status != StatusRunning {
		t.Fatalf("expected running, got %q ok=%v", status, ok)
	}
	if _, ok := ParseStatus("exploded"); ok {
		t.Fatal("unknown status should not parse")
	}
}

func TestDocumentRoundTripPreservesFields(t *testing.T) {
	job := NewJob("/tmp/part.ngc", "part")
	job.Metadata["tool"] = "T3"
	if err := job.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := job.fail("limit switch"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got := jobFromRecord(recordFromJob(job))
	if got.ID != job.ID || got.FilePath != job.FilePath || got.Name != job.Name {
		t.Fatalf("identity fields lost: %#v", got)
	}
	if got.Status != StatusFailed || got.ErrorMessage != "limit switch" {
		t.Fatalf("outcome fields lost: %#v", got)
	}
	if got.Metadata["tool"] != "T3" {
		t.Fatalf("metadata lost: %#v", got.Metadata)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(*job.StartedAt) {
		t.Fatalf("start time lost: %#v", got.StartedAt)
	}
}

func TestJobFromRecordRepairsLegacyRecords(t *testing.T) {
	rec := jobRecord{
		FilePath:    "/tmp/part.ngc",
		Name:        "part",
		Status:      "imploded",
		CreatedTime: "2024-03-01T10:22:05.123456",
	}
	job := jobFromRecord(rec)
	if job.ID == "" {
		t.Fatal("missing ID should be regenerated")
	}
	if job.Status != StatusPending {
		t.Fatalf("unknown status should become pending, got %s", job.Status)
	}
	if job.Metadata == nil {
		t.Fatal("nil metadata should be repaired")
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("legacy zone-less timestamp should parse")
	}
}
