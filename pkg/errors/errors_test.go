package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	inner := stderrors.New("dial tcp: refused")
	err := NewNetwork("iaai", "fetch failed", inner)

	assert.Equal(t, "[network] iaai: fetch failed - dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, err.IsRetryable())

	plain := NewDelivery("telegram", "chat not found", nil)
	assert.Equal(t, "[delivery] telegram: chat not found", plain.Error())
	assert.False(t, plain.IsRetryable())
}

func TestNewHTTPStatus(t *testing.T) {
	assert.True(t, NewHTTPStatus("iaai", 503).IsRetryable())
	assert.Equal(t, 503, NewHTTPStatus("iaai", 503).StatusCode)
	assert.False(t, NewHTTPStatus("iaai", 404).IsRetryable())
	assert.True(t, IsType(NewHTTPStatus("iaai", 404), ErrorTypeDelivery))
}

func TestRetryAfter(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", NewRateLimit("telegram", 7*time.Second))

	d, ok := RetryAfter(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, d)
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))

	_, ok = RetryAfter(stderrors.New("other"))
	assert.False(t, ok)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, true},
		{"op error", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"errno", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"chrome navigation", stderrors.New("page load error net::ERR_CONNECTION_RESET"), true},
		{"chrome name", stderrors.New("net::ERR_NAME_NOT_RESOLVED"), true},
		{"browser closed", stderrors.New("Target page, context or browser has been closed"), true},
		{"typed network", NewNetwork("x", "5xx", nil), true},
		{"typed parsing", NewParsing("x", "bad json", nil), false},
		{"typed rate limit", NewRateLimit("x", time.Second), false},
		{"plain", stderrors.New("invalid selector"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
