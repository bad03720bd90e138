package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/apperr"
)

var codes = map[string]connect.Code{
	apperr.CodeWrongPassword:    connect.CodeUnauthenticated,
	apperr.CodeUserNotFound:     connect.CodeNotFound,
	apperr.CodeInvalidEmail:     connect.CodeInvalidArgument,
	apperr.CodeEmailInUse:       connect.CodeAlreadyExists,
	apperr.CodeWeakPassword:     connect.CodeInvalidArgument,
	apperr.CodeTooManyRequests:  connect.CodeResourceExhausted,
	apperr.CodeNetwork:          connect.CodeUnavailable,
	apperr.CodeTokenExpired:     connect.CodeUnauthenticated,
	apperr.CodeProfileMissing:   connect.CodeNotFound,
	apperr.CodePermissionDenied: connect.CodePermissionDenied,
	apperr.CodeInvalidArgument:  connect.CodeInvalidArgument,
	apperr.CodeInternal:         connect.CodeInternal,
}

// NewError converts err into a Connect error whose metadata carries the
// canonical code, so clients can rebuild the coded error.
func NewError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Wrap(apperr.CodeInternal, err)
	}

	code, ok := codes[e.Code]
	if !ok {
		code = connect.CodeUnknown
	}
	out := connect.NewError(code, errors.New(e.Message))
	out.Meta().Set(ErrorCodeHeader, e.Code)
	return out
}

// FromError converts an error returned by a BackendService client back into
// a coded *apperr.Error. Transport failures become network-request-failed.
func FromError(err error) error {
	if err == nil {
		return nil
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperr.Wrap(apperr.CodeNetwork, err)
	}

	if code := connectErr.Meta().Get(ErrorCodeHeader); code != "" {
		return &apperr.Error{Code: code, Message: connectErr.Message(), Err: err}
	}

	switch connectErr.Code() {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded:
		return &apperr.Error{Code: apperr.CodeNetwork, Message: connectErr.Message(), Err: err}
	case connect.CodeUnauthenticated:
		return &apperr.Error{Code: apperr.CodeTokenExpired, Message: connectErr.Message(), Err: err}
	case connect.CodePermissionDenied:
		return &apperr.Error{Code: apperr.CodePermissionDenied, Message: connectErr.Message(), Err: err}
	case connect.CodeCanceled:
		return err
	default:
		return &apperr.Error{Code: apperr.CodeInternal, Message: connectErr.Message(), Err: err}
	}
}
