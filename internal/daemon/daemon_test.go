package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"camqueue/internal/config"
	"camqueue/internal/controller"
	"camqueue/internal/daemon"
	"camqueue/internal/queue"
	"camqueue/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := controller.NewManualExecutor(nil)
	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	d, err := daemon.New(cfg, store, ctrl, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}

	status := d.Status()
	if !status.Running || status.PID == 0 || status.QueueFilePath == "" {
		t.Fatalf("unexpected status: %#v", status)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon should report stopped")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := controller.NewManualExecutor(nil)
	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	second, err := daemon.New(cfg, store, ctrl, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer second.Stop()

	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance must be rejected by the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second instance should start after first stops: %v", err)
	}
}

func TestDaemonStartRecoversStrandedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	// Simulate a crash: a job persisted as running with no live process.
	seed := testsupport.MustOpenStore(t, cfg, nil)
	job := testsupport.AddJob(t, seed, cfg, "stranded")
	if err := seed.MarkRunning(job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d, store := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got, _, ok := store.JobByID(job.ID)
	if !ok || got.Status != queue.StatusPending {
		t.Fatalf("stranded job should be pending after startup, got %#v", got)
	}
	if store.Current() != nil {
		t.Fatal("current pointer should be cleared by startup recovery")
	}
}

func TestDaemonQueuePassThroughs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newDaemon(t, cfg)

	job, err := d.QueueAdd("/tmp/part.ngc", "")
	if err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	if _, _, ok := d.QueueJobByID(job.ID); !ok {
		t.Fatal("QueueJobByID should resolve the added job")
	}

	d.StartQueue(context.Background())
	if !store.IsRunning() {
		t.Fatal("StartQueue should set the running flag")
	}
	d.PauseQueue()
	if !store.IsPaused() {
		t.Fatal("PauseQueue should set the paused flag")
	}
	d.StopQueue()
	if store.IsRunning() || store.IsPaused() {
		t.Fatal("StopQueue should clear both flags")
	}

	if !d.QueueRemove(job.ID) {
		t.Fatal("QueueRemove failed")
	}
	if cleared := d.ClearCompleted(); cleared != 0 {
		t.Fatalf("nothing to clear, got %d", cleared)
	}
}

func TestDaemonTailLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	chunk, err := d.TailLog(-1, 10)
	if err != nil {
		t.Fatalf("TailLog before any log exists: %v", err)
	}
	if len(chunk.Lines) != 0 {
		t.Fatalf("expected empty chunk, got %#v", chunk.Lines)
	}

	if err := os.MkdirAll(filepath.Dir(d.LogPath()), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(d.LogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	chunk, err = d.TailLog(-1, 2)
	if err != nil {
		t.Fatalf("TailLog: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "two" || chunk.Lines[1] != "three" {
		t.Fatalf("unexpected tail: %#v", chunk.Lines)
	}

	forward, err := d.TailLog(chunk.Offset, 0)
	if err != nil {
		t.Fatalf("TailLog forward: %v", err)
	}
	if len(forward.Lines) != 0 {
		t.Fatalf("expected no new lines, got %#v", forward.Lines)
	}
}
