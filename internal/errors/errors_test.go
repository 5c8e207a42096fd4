// internal/errors/errors_test.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrUpstream_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  *ErrUpstream
		want bool
	}{
		{"network failure", &ErrUpstream{Op: "get", Err: errors.New("dial tcp")}, true},
		{"server error", &ErrUpstream{Op: "get", StatusCode: http.StatusBadGateway}, true},
		{"rate limited", &ErrUpstream{Op: "get", StatusCode: http.StatusForbidden, RateLimited: true}, true},
		{"too many requests", &ErrUpstream{Op: "get", StatusCode: http.StatusTooManyRequests}, true},
		{"unauthorized", &ErrUpstream{Op: "get", StatusCode: http.StatusUnauthorized}, false},
		{"conflict", &ErrUpstream{Op: "list commits", StatusCode: http.StatusConflict}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestIsRetryable_NonUpstream(t *testing.T) {
	assert.False(t, IsRetryable(&ErrRepositoryNotFound{FullName: "a/b"}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestStore_WrapsOnce(t *testing.T) {
	cause := errors.New("connection reset")

	err := Store("insert activity", cause)
	var se *ErrStore
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "insert activity", se.Op)
	assert.ErrorIs(t, err, cause)

	again := Store("outer", err)
	assert.Same(t, err, again)

	assert.Nil(t, Store("noop", nil))
}

func TestErrUpstream_UnwrapsContextErrors(t *testing.T) {
	err := &ErrUpstream{Op: "get repository", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "get repository")
}
