package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrSkillNotFound, http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("decoding body: %w", ErrInvalidInput), http.StatusBadRequest},
		{"reload conflict", ErrReloadInProgress, http.StatusConflict},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"corpus unavailable", ErrCorpusUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrSkillNotFound, http.StatusGone, "retired"), http.StatusGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "message exceeds %d bytes", 10)
	assert.Equal(t, "invalid input: message exceeds 10 bytes", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPublic(t *testing.T) {
	status, msg := Public(Newf(ErrInvalidInput, http.StatusRequestEntityTooLarge, "message is %d bytes, limit is %d", 90, 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "message is 90 bytes, limit is 64", msg)

	status, msg = Public(fmt.Errorf("querying skills: %w", fmt.Errorf("pq: password authentication failed")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", msg)

	status, msg = Public(ErrCorpusUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "skill corpus unavailable", msg)

	status, msg = Public(fmt.Errorf("%w: unknown", ErrSkillNotFound))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "skill not found: unknown", msg)
}
