package testsupport

import (
	"path/filepath"
	"testing"

	"camqueue/internal/config"
	"camqueue/internal/events"
	"camqueue/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, hub *events.Hub) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, nil, hub)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// AddJob enqueues a job for tests using the provided store. The backing file
// path is synthesized under the test's temp tree.
func AddJob(t testing.TB, store *queue.Store, cfg *config.Config, name string) *queue.Job {
	t.Helper()

	job, err := store.Add(filepath.Join(BaseDir(cfg), "programs", name+".ngc"), name)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return job
}
