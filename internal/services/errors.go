package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks infrastructure failures: network, storage, bridge
	// outages. Recoverable by re-enqueueing the task.
	ErrTransient = errors.New("transient failure")
	// ErrExternal marks a bridge that answered but refused the request.
	ErrExternal = errors.New("external service error")
	// ErrValidation marks malformed input: bad extension, missing hash,
	// content/extension mismatch. Permanent for this document.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing blob or record.
	ErrNotFound = errors.New("not found")
	// ErrInvariant marks programming errors: nil UUID where one is required,
	// unreachable pipeline stages, duplicate ids from an insert. These fail
	// the task loudly; they indicate a bug, not an operational condition.
	ErrInvariant = errors.New("invariant violation")
)

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsPermanent reports whether an error should not be retried by re-enqueue.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvariant)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
