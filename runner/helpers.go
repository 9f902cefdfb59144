package runner

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"web/arkmap/mapview"
)

// sentinels travel over gRPC as status codes plus their message text.
var sentinels = []struct {
	err  error
	code codes.Code
}{
	{ErrViewNotFound, codes.NotFound},
	{ErrCatalogNotFound, codes.NotFound},
	{mapview.ErrLocationNotFound, codes.NotFound},
	{mapview.ErrUnknownCommand, codes.InvalidArgument},
}

// toStatus converts a runner error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return status.Error(s.code, err.Error())
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus restores the sentinel behind a gRPC status error so callers
// can keep using errors.Is.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, s := range sentinels {
		if st.Code() == s.code && strings.Contains(st.Message(), s.err.Error()) {
			return &remoteError{msg: st.Message(), err: s.err}
		}
	}
	switch st.Code() {
	case codes.Canceled:
		return &remoteError{msg: st.Message(), err: context.Canceled}
	case codes.DeadlineExceeded:
		return &remoteError{msg: st.Message(), err: context.DeadlineExceeded}
	}
	return err
}

type remoteError struct {
	msg string
	err error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.err }
