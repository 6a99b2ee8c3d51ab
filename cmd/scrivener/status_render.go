package main

import (
	"fmt"

	"scrivener/internal/task"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const statusLabelWidth = 12

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("%-*s %s", statusLabelWidth, label+":", message)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func taskStateKind(t *task.Task) statusKind {
	switch {
	case !t.Completed:
		return statusInfo
	case t.Success:
		return statusOK
	default:
		return statusError
	}
}
