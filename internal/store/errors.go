package store

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Codes the store may return for a conflict or an overloaded backend. A
// transaction failing with one of these is safe to re-run from scratch.
var retryableCodes = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.ResourceExhausted: true,
	codes.Internal:          true,
}

// Fallback substring match for errors that reach us without a gRPC status.
// Keep this list small: over-matching means retrying fatal errors.
var retryablePatterns = []string{
	"aborted",
	"contention",
	"conflict",
	"deadline exceeded",
	"timed out",
	"timeout",
	"resource exhausted",
	"unavailable",
}

// IsRetryable reports whether err is a transient store failure worth
// re-running the transaction for. Business errors and permission failures are
// never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if s, ok := status.FromError(err); ok {
		return retryableCodes[s.Code()]
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsAlreadyExists reports whether err is the store's duplicate-id rejection
// from a Create.
func IsAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// IsNotFound reports whether err is the store's missing-document rejection
// from an Update or Delete.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
