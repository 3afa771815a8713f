package domain

import (
	"fmt"
	"strings"
)

// transientKeywords classifies an upstream error message as retryable.
// Preserved verbatim from the source system's transient-error heuristic.
var transientKeywords = []string{
	"timeout",
	"gateway",
	"502",
	"temporarily unavailable",
	"connection reset",
	"unavailable",
}

// IsTransient reports whether err looks like a retryable network/upstream
// failure rather than a persistent configuration or schema problem.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// WrapUpstream classifies err as transient or persistent and wraps it
// accordingly so callers can branch with errors.Is.
func WrapUpstream(err error, context string) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("%s: %w: %v", context, ErrTransientUpstream, err)
	}
	return fmt.Errorf("%s: %w: %v", context, ErrPersistentUpstream, err)
}
