package tcp

import (
	"errors"
	"fmt"
	"net"
)

var (
	// Protocol errors
	ErrInvalidProtocol = errors.New("invalid protocol format")
	ErrInvalidIdentity = errors.New("identity must be a single line")

	// Connection errors
	ErrConnectFailed    = errors.New("connect failed")
	ErrConnectionClosed = errors.New("connection closed")
	ErrReadTimeout      = errors.New("read operation timeout")
	ErrWriteTimeout     = errors.New("write operation timeout")

	// Challenge errors
	ErrInvalidChallenge = errors.New("invalid challenge format")
	ErrSolutionNotFound = errors.New("solution not found")
)

// server codes worth another attempt
const (
	codeRateLimited = "RATE_LIMITED"
	codeTimeout     = "TIMEOUT"
)

type ClientError struct {
	Op   string
	Err  error
	Info string
}

func (e *ClientError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func NewClientError(op string, err error, info string) error {
	return &ClientError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

// RejectionError is an ERROR response from the server.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("server rejected proof: %s: %s", e.Code, e.Message)
}

// Helper functions
func IsRetryableError(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}

	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Code == codeRateLimited || rejection.Code == codeTimeout
	}

	switch {
	case errors.Is(err, ErrConnectFailed):
		return true
	case errors.Is(err, ErrConnectionClosed):
		return true
	case errors.Is(err, ErrReadTimeout):
		return true
	case errors.Is(err, ErrWriteTimeout):
		return true
	default:
		return false
	}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
