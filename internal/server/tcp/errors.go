package tcp

import (
	"errors"
	"fmt"
	"net"

	"powsign/internal/usecases"
)

// Custom error types
var (
	// Connection errors
	ErrConnectionClosed = errors.New("connection closed")
	ErrReadTimeout      = errors.New("read operation timeout")
	ErrWriteTimeout     = errors.New("write operation timeout")
	ErrRateLimited      = errors.New("too many connections")

	// Delivery errors
	ErrDelivery = errors.New("failed to deliver message")

	// Solution errors
	ErrSolutionFormat = errors.New("invalid solution format")
)

// Error types with additional context
type ServerError struct {
	Op   string // Operation that failed
	Err  error  // Original error
	Info string // Additional context
}

func (e *ServerError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func NewConnectionError(op string, err error, info string) error {
	return &ServerError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrReadTimeout) || errors.Is(err, ErrWriteTimeout)
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func IsProtocolError(err error) bool {
	return errors.Is(err, ErrSolutionFormat)
}

// ErrorResponse is sent to the client as ERROR:<Code>:<Message>.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error responses
var (
	ErrRespInvalidFormat = ErrorResponse{
		Code:    "INVALID_FORMAT",
		Message: "Invalid message format",
	}
	ErrRespTimeout = ErrorResponse{
		Code:    "TIMEOUT",
		Message: "Operation timed out",
	}
	ErrRespInvalidSolution = ErrorResponse{
		Code:    "INVALID_SOLUTION",
		Message: "Invalid proof of work solution",
	}
	ErrRespInvalidKey = ErrorResponse{
		Code:    "INVALID_KEY",
		Message: "Public key cannot be used for verification",
	}
	ErrRespInvalidSignature = ErrorResponse{
		Code:    "INVALID_SIGNATURE",
		Message: "Signature does not verify",
	}
	ErrRespReplayed = ErrorResponse{
		Code:    "REPLAYED",
		Message: "Proof was already accepted",
	}
	ErrRespRateLimited = ErrorResponse{
		Code:    "RATE_LIMITED",
		Message: "Too many connections, retry later",
	}
	ErrRespInternal = ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}
)

// ToErrorResponse maps an error to the response code sent to the client.
func ToErrorResponse(err error) ErrorResponse {
	switch {
	case IsProtocolError(err):
		return ErrRespInvalidFormat
	case IsTimeoutError(err):
		return ErrRespTimeout
	case errors.Is(err, ErrRateLimited):
		return ErrRespRateLimited
	case errors.Is(err, usecases.ErrInvalidSolution):
		return ErrRespInvalidSolution
	case errors.Is(err, usecases.ErrInvalidKey):
		return ErrRespInvalidKey
	case errors.Is(err, usecases.ErrInvalidSignature):
		return ErrRespInvalidSignature
	case errors.Is(err, usecases.ErrReplayedProof):
		return ErrRespReplayed
	default:
		return ErrRespInternal
	}
}
