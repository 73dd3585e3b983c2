package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("c", "m", nil), http.StatusBadRequest},
		{Unauthorized("c", "m", nil), http.StatusUnauthorized},
		{Forbidden("c", "m", nil), http.StatusForbidden},
		{NotFound("c", "m", nil), http.StatusNotFound},
		{Conflict("c", "m", nil), http.StatusConflict},
		{TooManyRequests("c", "m", nil), http.StatusTooManyRequests},
		{Unavailable("c", "m", nil), http.StatusServiceUnavailable},
		{&AppError{}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.StatusCode(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.err.Code, tc.want, got)
		}
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	conflict := Conflict("already_voted", "already voted", nil)
	wrapped := fmt.Errorf("vote: %w", conflict)
	if got := FromError(wrapped); got != conflict {
		t.Fatalf("expected wrapped AppError to be returned, got %+v", got)
	}

	cause := errors.New("boom")
	got := FromError(cause)
	if got.StatusCode() != http.StatusInternalServerError || !errors.Is(got, cause) {
		t.Fatalf("expected internal error wrapping cause, got %+v", got)
	}
}
