package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrappedKindsSurviveFurtherWrapping(t *testing.T) {
	err := NotFoundf("bed %s", "GW-001")
	err = fmt.Errorf("assign: %w", err)

	if !errors.Is(err, NotFound) {
		t.Fatalf("expected errors.Is(err, NotFound), got %v", err)
	}
	if errors.Is(err, Conflict) {
		t.Fatalf("did not expect Conflict in %v", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFoundf("bed %s", "X"), http.StatusNotFound},
		{Conflictf("bed occupied"), http.StatusConflict},
		{InvalidStatef("already discharged"), http.StatusUnprocessableEntity},
		{Validationf("quantity must be positive"), http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{Inconsistentf("bed released but admission not updated"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
