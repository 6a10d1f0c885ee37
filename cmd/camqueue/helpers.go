package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"camqueue/internal/ipc"
)

// resolveJob turns an operator-facing reference into a concrete job. A
// number is a 1-based queue position; anything else matches a job ID, a
// unique ID prefix, or a unique job name.
func resolveJob(client *ipc.Client, arg string) (*ipc.JobView, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("job reference is required")
	}

	list, err := client.QueueList(nil)
	if err != nil {
		return nil, err
	}
	jobs := list.Jobs

	if position, convErr := strconv.Atoi(arg); convErr == nil {
		if position < 1 || position > len(jobs) {
			return nil, fmt.Errorf("position %d out of range (queue has %d jobs)", position, len(jobs))
		}
		return &jobs[position-1], nil
	}

	var matches []*ipc.JobView
	for i := range jobs {
		if jobs[i].ID == arg {
			return &jobs[i], nil
		}
		if strings.HasPrefix(jobs[i].ID, arg) || jobs[i].Name == arg {
			matches = append(matches, &jobs[i])
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no job matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q is ambiguous; use a position or a longer ID prefix", arg)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(view ipc.JobView) string {
	if view.StartedAt == nil || view.EndedAt == nil {
		return "-"
	}
	return view.EndedAt.Sub(*view.StartedAt).Round(time.Second).String()
}

func buildJobRows(jobs []ipc.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.Itoa(job.Position + 1),
			shortID(job.ID),
			job.Name,
			job.Status,
			formatTimestamp(job.CreatedAt),
		})
	}
	return rows
}

func buildHistoryRows(jobs []ipc.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		errText := job.ErrorMessage
		if errText == "" {
			errText = "-"
		}
		rows = append(rows, []string{
			shortID(job.ID),
			job.Name,
			job.Status,
			formatDuration(job),
			errText,
		})
	}
	return rows
}
