package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind buckets backend failures by how the gateway should react.
type ErrorKind string

const (
	// KindTransient covers timeouts, rate limits and transport failures.
	// Eligible for bounded retry.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers authentication and configuration failures.
	// Never retried.
	KindPermanent ErrorKind = "permanent"
	// KindCanceled means the caller gave up; the run skips straight to a
	// cancellation-flavored fallback.
	KindCanceled ErrorKind = "canceled"
)

// GenerationError wraps a backend failure with its retry classification.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s error: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// classify maps a raw backend error onto an ErrorKind. Unknown failures are
// treated as transient transport problems.
func classify(ctx context.Context, err error) ErrorKind {
	if ctx.Err() == context.Canceled || errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return KindTransient
		default:
			return KindPermanent
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return KindTransient
		case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
			return KindPermanent
		}
	}

	return KindTransient
}
