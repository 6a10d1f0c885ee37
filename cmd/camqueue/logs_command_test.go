package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestCLILogsTail(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := env.daemon.LogPath()
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
}

func TestCLILogsFollow(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := env.daemon.LogPath()
	if err := os.WriteFile(logPath, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--socket", env.socketPath, "--config", env.configPath, "logs", "--follow"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	time.Sleep(100 * time.Millisecond)
	appendLine(t, logPath, "followed")
	// The follow loop polls every 500ms; give it two cycles to pick the
	// line up before cancelling.
	time.Sleep(1200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("logs --follow execute: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("logs --follow did not exit")
	}

	requireContains(t, stdout.String(), "followed")
}
