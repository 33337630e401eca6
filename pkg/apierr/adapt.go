package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
)

// ToErrorResponse unifies any error into an ErrorResponse, independent of transport.
func ToErrorResponse(err error) ErrorResponse {
	if err == nil {
		return Internal().WithReason("unexpected_error")
	}
	if e, ok := err.(ErrorResponse); ok {
		return e
	}
	if e, ok := err.(*ErrorResponse); ok && e != nil {
		return *e
	}
	if errors.Is(err, context.Canceled) {
		return Canceled()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return DeadlineExceeded()
	}
	var ie InvariantError
	if errors.As(err, &ie) {
		return convertInvariant(ie)
	}
	return Internal().WithReason("unexpected_error")
}

func convertInvariant(e InvariantError) ErrorResponse {
	switch e.Kind {
	case KindState, KindTransition:
		return FailedPrecondition().WithReason("invariant_violation").
			WithDetail("invariant_kind", string(e.Kind)).
			WithDetail("field", e.Field)
	default:
		return ValidationFields(map[string]string{e.Field: e.Reason})
	}
}

// Helpers for targeted use.
func ToValidation(field, reason string) ErrorResponse {
	return ValidationFields(map[string]string{field: reason})
}

func To(code codes.Code, reason, msg string) ErrorResponse {
	return New(msg, code, nil).WithReason(reason)
}
