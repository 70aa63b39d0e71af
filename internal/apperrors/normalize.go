// Package apperrors is the single point turning store and business errors
// into stable codes and user-facing messages. It never retries and never
// leaks internal error details.
package apperrors

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	accesskeysdomain "github.com/quizdeck/quizdeck-backend/internal/accesskeys/domain"
	ordersdomain "github.com/quizdeck/quizdeck-backend/internal/orders/domain"
	rolesdomain "github.com/quizdeck/quizdeck-backend/internal/roles/domain"
	"github.com/quizdeck/quizdeck-backend/internal/store"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

// Normalized is the stable, user-safe shape of any error.
type Normalized struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const genericMessage = "Something went wrong. Please try again later."

var businessErrors = []struct {
	target error
	norm   Normalized
	status int
}{
	{accesskeysdomain.ErrKeyNotFound, Normalized{"key-not-found", "This access key does not exist. Check the code and try again."}, http.StatusNotFound},
	{accesskeysdomain.ErrKeyAlreadyUsed, Normalized{"key-already-used", "This access key has already been redeemed."}, http.StatusConflict},
	{accesskeysdomain.ErrKeyGenerationExhausted, Normalized{"key-generation-exhausted", "Could not generate a unique access key. Please try again."}, http.StatusServiceUnavailable},
	{accesskeysdomain.ErrMissingKey, Normalized{"invalid-request", "An access key is required."}, http.StatusBadRequest},
	{accesskeysdomain.ErrInvalidUnlock, Normalized{"invalid-request", "A key must unlock either a capability or cart contents, not both."}, http.StatusBadRequest},
	{usersdomain.ErrUserNotFound, Normalized{"user-not-found", "No account was found for this user."}, http.StatusNotFound},
	{ordersdomain.ErrOrderNotFound, Normalized{"order-not-found", "This order does not exist."}, http.StatusNotFound},
	{ordersdomain.ErrEmptyCart, Normalized{"invalid-request", "The order cart is empty."}, http.StatusBadRequest},
	{ordersdomain.ErrInvalidStatus, Normalized{"invalid-request", "Unknown order status."}, http.StatusBadRequest},
	{rolesdomain.ErrInvalidRole, Normalized{"invalid-request", "Unknown role."}, http.StatusBadRequest},
	{rolesdomain.ErrSelfGrant, Normalized{"self-grant-forbidden", "You cannot change your own role."}, http.StatusForbidden},
	{store.ErrBatchAlreadyActive, Normalized{"batch-already-active", "Another bulk operation is still in progress."}, http.StatusConflict},
	{store.ErrBatchSizeExceeded, Normalized{"batch-size-exceeded", "Too many operations in one bulk request."}, http.StatusBadRequest},
	{store.ErrNoActiveBatch, Normalized{"invalid-request", "No bulk operation is in progress."}, http.StatusBadRequest},
}

var storeCodes = map[codes.Code]struct {
	norm   Normalized
	status int
}{
	codes.PermissionDenied:  {Normalized{"permission-denied", "You do not have permission to perform this action."}, http.StatusForbidden},
	codes.NotFound:          {Normalized{"not-found", "The requested resource was not found."}, http.StatusNotFound},
	codes.AlreadyExists:     {Normalized{"already-exists", "This resource already exists."}, http.StatusConflict},
	codes.ResourceExhausted: {Normalized{"resource-exhausted", "The service is overloaded. Please try again shortly."}, http.StatusTooManyRequests},
	codes.FailedPrecondition: {Normalized{"failed-precondition", "The operation cannot be performed in the current state."}, http.StatusBadRequest},
	codes.Aborted:           {Normalized{"conflict", "The operation conflicted with another request. Please try again."}, http.StatusConflict},
	codes.OutOfRange:        {Normalized{"out-of-range", "A value in the request is out of range."}, http.StatusBadRequest},
	codes.Unimplemented:     {Normalized{"unimplemented", "This feature is not available."}, http.StatusNotImplemented},
	codes.Internal:          {Normalized{"internal", genericMessage}, http.StatusInternalServerError},
	codes.Unavailable:       {Normalized{"unavailable", "The service is temporarily unavailable. Please try again."}, http.StatusServiceUnavailable},
	codes.DataLoss:          {Normalized{"data-loss", genericMessage}, http.StatusInternalServerError},
	codes.Unauthenticated:   {Normalized{"unauthenticated", "You must be signed in to perform this action."}, http.StatusUnauthorized},
	codes.DeadlineExceeded:  {Normalized{"timeout", "The request took too long. Please try again."}, http.StatusGatewayTimeout},
	codes.InvalidArgument:   {Normalized{"invalid-request", "The request is invalid."}, http.StatusBadRequest},
}

// Classify maps err to its stable code and user message. Unmapped errors
// fall back to a generic internal error.
func Classify(err error) Normalized {
	norm, _ := classify(err)
	return norm
}

// HTTPStatus returns the response status for err alongside its normalized
// form, for the handler layer.
func HTTPStatus(err error) (int, Normalized) {
	norm, status := classify(err)
	return status, norm
}

func classify(err error) (Normalized, int) {
	var batchErr *store.BatchCommitError
	if errors.As(err, &batchErr) {
		return Normalized{"batch-commit-failed", "The bulk operation failed. No changes were saved."}, http.StatusInternalServerError
	}

	for _, be := range businessErrors {
		if errors.Is(err, be.target) {
			return be.norm, be.status
		}
	}

	if s, ok := status.FromError(err); ok && s.Code() != codes.OK {
		if mapped, known := storeCodes[s.Code()]; known {
			return mapped.norm, mapped.status
		}
	}

	return Normalized{"internal", genericMessage}, http.StatusInternalServerError
}
