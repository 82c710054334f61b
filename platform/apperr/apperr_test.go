package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestWrapKeepsSentinelReachable(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("outer: %w", Wrap(KindUnavailable, "store failed", sentinel))

	if !errors.Is(err, sentinel) {
		t.Fatal("expected errors.Is to reach wrapped sentinel")
	}
	if GetKind(err) != KindUnavailable {
		t.Fatalf("expected unavailable kind through wrapping, got %d", GetKind(err))
	}
}
