package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport failures and 5xx responses
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents malformed payloads
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents 429 style throttling
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeDelivery represents a rejected notification
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypeImage represents a notification rejected because of its image
	ErrorTypeImage ErrorType = "image"
	// ErrorTypeStore represents dedup store failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// AppError is the typed error shared by every lotwatcher component
type AppError struct {
	Type       ErrorType
	Source     string
	Message    string
	Err        error
	StatusCode int
	RetryAfter time.Duration
	Time       time.Time
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the same request may succeed if repeated
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// New creates a new AppError
func New(errType ErrorType, source, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *AppError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewHTTPStatus classifies an unexpected HTTP status. 5xx is treated as a
// network error, everything else as a terminal delivery error.
func NewHTTPStatus(source string, status int) *AppError {
	msg := fmt.Sprintf("unexpected status code: %d", status)
	var e *AppError
	if status >= 500 {
		e = New(ErrorTypeNetwork, source, msg, nil)
	} else {
		e = New(ErrorTypeDelivery, source, msg, nil)
	}
	e.StatusCode = status
	return e
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *AppError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error carrying the server hint
func NewRateLimit(source string, retryAfter time.Duration) *AppError {
	e := New(ErrorTypeRateLimit, source, fmt.Sprintf("rate limited for %v", retryAfter), nil)
	e.StatusCode = 429
	e.RetryAfter = retryAfter
	return e
}

// NewDelivery creates a new delivery error
func NewDelivery(source, message string, err error) *AppError {
	return New(ErrorTypeDelivery, source, message, err)
}

// NewImage creates a new image rejection error
func NewImage(source, message string, err error) *AppError {
	return New(ErrorTypeImage, source, message, err)
}

// NewStore creates a new store error
func NewStore(source, message string, err error) *AppError {
	return New(ErrorTypeStore, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *AppError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err wraps an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var e *AppError
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// RetryAfter returns the server provided wait carried by a rate limit error
func RetryAfter(err error) (time.Duration, bool) {
	var e *AppError
	if stderrors.As(err, &e) && e.Type == ErrorTypeRateLimit {
		return e.RetryAfter, true
	}
	return 0, false
}

var transientMarkers = []string{
	"timeout",
	"timed out",
	"err_connection",
	"err_name_not_resolved",
	"err_network",
	"err_internet_disconnected",
	"err_tunnel_connection_failed",
	"err_proxy_connection_failed",
	"err_timed_out",
	"err_empty_response",
	"econnrefused",
	"econnreset",
	"etimedout",
	"enotfound",
	"eaddrnotavail",
	"connection reset",
	"connection refused",
	"network",
	"connection",
	"target closed",
	"browser has been closed",
	"context, or browser has been closed",
}

// IsTransient reports whether err looks like a failure worth retrying:
// retryable AppErrors, network timeouts, DNS and socket errors, and the
// message patterns Chrome uses for navigation failures.
func IsTransient(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.IsRetryable()
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.EADDRNOTAVAIL} {
		if stderrors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
