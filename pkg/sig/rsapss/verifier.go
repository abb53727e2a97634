package rsapss

import (
	"crypto/rsa"
	"errors"
	"fmt"
)

// Verifier checks signatures against one public key under fixed Params.
type Verifier struct {
	key    *rsa.PublicKey
	params Params
}

func NewVerifier(pub *rsa.PublicKey, params Params) (*Verifier, error) {
	if err := params.Validate(); err != nil {
		return nil, &KeyError{Op: "NewVerifier", Err: err}
	}
	if err := checkPublicKey(pub); err != nil {
		return nil, &KeyError{Op: "NewVerifier", Err: err}
	}
	return &Verifier{
		key:    pub,
		params: params,
	}, nil
}

// Verify reports whether signature is valid for message. A signature that
// does not match (wrong key, altered message, bad padding, wrong length) is
// reported as false with a nil error. A non-nil error is always a *KeyError
// and means the key itself could not be used.
func (v *Verifier) Verify(message, signature []byte) (bool, error) {
	h := v.params.Hash.New()
	h.Write(message)
	digest := h.Sum(nil)

	var err error
	switch v.params.Padding {
	case PaddingPSS:
		opts, optErr := v.params.pssOptions(v.key)
		if optErr != nil {
			return false, &KeyError{Op: "Verify", Err: optErr}
		}
		err = rsa.VerifyPSS(v.key, v.params.Hash, digest, signature, opts)
	case PaddingPKCS1v15:
		err = rsa.VerifyPKCS1v15(v.key, v.params.Hash, digest, signature)
	default:
		return false, &KeyError{Op: "Verify", Err: fmt.Errorf("%w: %v", ErrUnsupportedParams, v.params.Padding)}
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, rsa.ErrVerification):
		return false, nil
	default:
		return false, &KeyError{Op: "Verify", Err: err, Info: fmt.Sprintf("%d bit key", v.key.N.BitLen())}
	}
}

func (v *Verifier) Public() *rsa.PublicKey {
	return v.key
}

// Verify checks signature with DefaultParams.
func Verify(pub *rsa.PublicKey, message, signature []byte) (bool, error) {
	v, err := NewVerifier(pub, DefaultParams())
	if err != nil {
		return false, err
	}
	return v.Verify(message, signature)
}
