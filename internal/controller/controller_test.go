package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"camqueue/internal/controller"
	"camqueue/internal/notifications"
	"camqueue/internal/queue"
	"camqueue/internal/testsupport"
)

// fakeExecutor records dispatch requests and lets tests report outcomes with
// the captured token.
type fakeExecutor struct {
	mu         sync.Mutex
	dispatches []fakeDispatch
	launchErr  error
}

type fakeDispatch struct {
	token string
	jobID string
}

func (f *fakeExecutor) RequestExecution(_ context.Context, token string, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return f.launchErr
	}
	f.dispatches = append(f.dispatches, fakeDispatch{token: token, jobID: job.ID})
	return nil
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dispatches)
}

func (f *fakeExecutor) last() fakeDispatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dispatches[len(f.dispatches)-1]
}

// recordingNotifier captures the queue-completed summary and job failures.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []int
	jobFails  []string
}

var _ notifications.Service = (*recordingNotifier)(nil)

func (r *recordingNotifier) NotifyQueueStarted(context.Context, int) error { return nil }

func (r *recordingNotifier) NotifyQueueCompleted(_ context.Context, completed, failed, skipped int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, completed, failed, skipped)
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(_ context.Context, jobName, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobFails = append(r.jobFails, jobName)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDispatchesPendingJobsInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}

	first := testsupport.AddJob(t, store, cfg, "first")
	second := testsupport.AddJob(t, store, cfg, "second")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()

	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })
	if exec.last().jobID != first.ID {
		t.Fatalf("expected first job dispatched, got %s", exec.last().jobID)
	}

	ctrl.ReportOutcome(exec.last().token, true, "")

	waitFor(t, 2*time.Second, func() bool { return exec.count() == 2 })
	if exec.last().jobID != second.ID {
		t.Fatalf("expected second job dispatched, got %s", exec.last().jobID)
	}
}

func TestStopsQueueWhenDrained(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}
	notifier := &recordingNotifier{}

	testsupport.AddJob(t, store, cfg, "only")

	ctrl := controller.New(cfg, store, exec, notifier, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })
	ctrl.ReportOutcome(exec.last().token, true, "")

	waitFor(t, 2*time.Second, func() bool { return !store.IsRunning() })

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.completed) != 3 || notifier.completed[0] != 1 {
		t.Fatalf("expected completion summary with 1 completed, got %v", notifier.completed)
	}
}

func TestPauseBlocksDispatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}

	testsupport.AddJob(t, store, cfg, "job")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	store.Pause()

	time.Sleep(100 * time.Millisecond)
	if exec.count() != 0 {
		t.Fatal("paused queue must not dispatch")
	}
	if !store.IsRunning() {
		t.Fatal("pause must not stop the queue")
	}

	store.Start()
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })
}

func TestStaleOutcomeIgnoredAfterStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}

	job := testsupport.AddJob(t, store, cfg, "job")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })
	token := exec.last().token

	store.StopQueue()
	ctrl.ReportOutcome(token, true, "")

	waitFor(t, 2*time.Second, func() bool {
		got, _, ok := store.JobByID(job.ID)
		return ok && got.Status == queue.StatusRunning && store.Current() == nil
	})
}

func TestSkipCurrentAllowsNextDispatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}

	skippedJob := testsupport.AddJob(t, store, cfg, "skipped")
	next := testsupport.AddJob(t, store, cfg, "next")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })
	firstToken := exec.last().token

	if !store.SkipCurrent() {
		t.Fatal("SkipCurrent failed")
	}
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 2 })
	if exec.last().jobID != next.ID {
		t.Fatalf("expected next job after skip, got %s", exec.last().jobID)
	}

	// The skipped dispatch's late outcome must not touch the new one.
	ctrl.ReportOutcome(firstToken, false, "late report")
	time.Sleep(50 * time.Millisecond)
	got, _, _ := store.JobByID(skippedJob.ID)
	if got.Status != queue.StatusSkipped {
		t.Fatalf("skipped job mutated by stale outcome: %s", got.Status)
	}
	current := store.Current()
	if current == nil || current.ID != next.ID {
		t.Fatal("new dispatch lost")
	}
}

func TestWatchdogFailsSilentJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}
	notifier := &recordingNotifier{}

	job := testsupport.AddJob(t, store, cfg, "stuck")

	ctrl := controller.New(cfg, store, exec, notifier, nil,
		controller.WithPollInterval(10*time.Millisecond),
		controller.WithWatchdogTimeout(50*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool {
		got, _, ok := store.JobByID(job.ID)
		return ok && got.Status == queue.StatusFailed
	})

	got, _, _ := store.JobByID(job.ID)
	if got.ErrorMessage == "" {
		t.Fatal("watchdog failure should carry a message")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.jobFails) == 0 || notifier.jobFails[0] != "stuck" {
		t.Fatalf("expected failure notification, got %v", notifier.jobFails)
	}
}

func TestLaunchErrorFailsJobImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{launchErr: context.DeadlineExceeded}

	job := testsupport.AddJob(t, store, cfg, "doomed")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool {
		got, _, ok := store.JobByID(job.ID)
		return ok && got.Status == queue.StatusFailed
	})
}

func TestExternalCompletionAppliesToInflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)
	exec := &fakeExecutor{}

	job := testsupport.AddJob(t, store, cfg, "manual")

	ctrl := controller.New(cfg, store, exec, nil, nil,
		controller.WithPollInterval(10*time.Millisecond))
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	store.Start()
	waitFor(t, 2*time.Second, func() bool { return exec.count() == 1 })

	ctrl.OnExecutionFinished(true, "")
	waitFor(t, 2*time.Second, func() bool {
		got, _, ok := store.JobByID(job.ID)
		return ok && got.Status == queue.StatusCompleted
	})
}
