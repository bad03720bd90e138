package api

import (
	"errors"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/apperr"
)

func TestErrorRoundTrip(t *testing.T) {
	tests := []struct {
		code        string
		connectCode connect.Code
	}{
		{apperr.CodeWrongPassword, connect.CodeUnauthenticated},
		{apperr.CodeEmailInUse, connect.CodeAlreadyExists},
		{apperr.CodePermissionDenied, connect.CodePermissionDenied},
		{apperr.CodeTooManyRequests, connect.CodeResourceExhausted},
		{"auth/something-new", connect.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wire := NewError(apperr.New(tt.code, "boom"))
			if wire.Code() != tt.connectCode {
				t.Errorf("connect code = %v, want %v", wire.Code(), tt.connectCode)
			}

			back := FromError(wire)
			if got := apperr.CodeOf(back); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
			var e *apperr.Error
			if errors.As(back, &e) && e.Message != "boom" {
				t.Errorf("message = %q, want boom", e.Message)
			}
		})
	}
}

func TestNewErrorWrapsPlainErrors(t *testing.T) {
	wire := NewError(errors.New("disk full"))
	if wire.Code() != connect.CodeInternal {
		t.Errorf("code = %v, want internal", wire.Code())
	}
	if wire.Meta().Get(ErrorCodeHeader) != apperr.CodeInternal {
		t.Errorf("missing error code metadata")
	}
}

func TestFromErrorTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unavailable", connect.NewError(connect.CodeUnavailable, errors.New("dial tcp: refused")), apperr.CodeNetwork},
		{"plain", errors.New("EOF"), apperr.CodeNetwork},
		{"unauthenticated", connect.NewError(connect.CodeUnauthenticated, errors.New("bad token")), apperr.CodeTokenExpired},
		{"other", connect.NewError(connect.CodeDataLoss, errors.New("x")), apperr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.CodeOf(FromError(tt.err)); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}

	if FromError(nil) != nil {
		t.Error("FromError(nil) must be nil")
	}
}
