package rsapss

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedParams = errors.New("unsupported signature parameters")
	ErrMalformedKey      = errors.New("malformed rsa key")
)

// GenerationError reports that a key pair could not be created.
type GenerationError struct {
	Op   string
	Err  error
	Info string
}

func (e *GenerationError) Error() string {
	return formatError("generate", e.Op, e.Err, e.Info)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SigningError reports that a message could not be signed with a key.
type SigningError struct {
	Op   string
	Err  error
	Info string
}

func (e *SigningError) Error() string {
	return formatError("sign", e.Op, e.Err, e.Info)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// KeyError reports a key object that cannot take part in verification at
// all. It is distinct from a signature that simply does not verify.
type KeyError struct {
	Op   string
	Err  error
	Info string
}

func (e *KeyError) Error() string {
	return formatError("key", e.Op, e.Err, e.Info)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func formatError(kind, op string, err error, info string) string {
	if info != "" {
		return fmt.Sprintf("%s %s: %v (%s)", kind, op, err, info)
	}
	return fmt.Sprintf("%s %s: %v", kind, op, err)
}

// IsKeyError reports whether err carries a *KeyError.
func IsKeyError(err error) bool {
	var keyErr *KeyError
	return errors.As(err, &keyErr)
}
