package errortypes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		err  error
		want int
	}{
		{Validationf("title is required"), http.StatusBadRequest},
		{NotFoundError(cause, "question not found"), http.StatusNotFound},
		{ConflictError(cause, "duplicate"), http.StatusConflict},
		{DatabaseError(cause, "query failed"), http.StatusInternalServerError},
		{NetworkError(cause, "dial failed"), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", NotFoundError(cause, "answer not found")), http.StatusNotFound},
		{cause, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "title is required", PublicMessage(Validationf("title is required")))
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "database error", PublicMessage(DatabaseError(errors.New("disk full"), "")))
}

func TestUnwrapKeepsSentinel(t *testing.T) {
	sentinel := errors.New("question not found")
	err := NotFoundError(sentinel, "question 7 not found")
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsValidationError(err))
	assert.Equal(t, "question 7 not found: question not found", err.Error())
}

func TestFromHTTPStatus(t *testing.T) {
	err := FromHTTPStatus(http.StatusBadRequest, "", "bad input")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "bad input", err.Error())

	err = FromHTTPStatus(http.StatusNotFound, "not_found", "question not found")
	assert.Equal(t, ErrorTypeNotFound, err.Type)

	err = FromHTTPStatus(http.StatusServiceUnavailable, "", "unavailable")
	assert.Equal(t, ErrorTypeExternal, err.Type)
	assert.Equal(t, http.StatusServiceUnavailable, err.Fields["status_code"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, DatabaseError(errors.New("locked"), "cast vote").WithField("target_id", 3))
	out := buf.String()
	require.Contains(t, out, "cast vote")
	assert.Contains(t, out, "type=database")
	assert.Contains(t, out, "target_id=3")
	assert.Contains(t, out, "original_error=locked")
}
