package main

import (
	"time"

	"scrivener/internal/task"
)

const errorColumnWidth = 48

func buildTaskRows(tasks []*task.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID.String(),
			string(t.Type),
			laneLabel(t.Priority),
			taskStateLabel(t),
			t.UpdatedAt.Local().Format(time.RFC3339),
			truncate(t.Error, errorColumnWidth),
		})
	}
	return rows
}

func laneLabel(priority bool) string {
	if priority {
		return "priority"
	}
	return "background"
}

func taskStateLabel(t *task.Task) string {
	switch {
	case !t.Completed:
		return "pending"
	case t.Success:
		return "succeeded"
	default:
		return "failed"
	}
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
