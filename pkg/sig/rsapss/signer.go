package rsapss

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

// Signer signs messages with one private key under fixed Params.
type Signer struct {
	key    *rsa.PrivateKey
	params Params
	random io.Reader
}

func NewSigner(priv *rsa.PrivateKey, params Params) (*Signer, error) {
	if err := params.Validate(); err != nil {
		return nil, &SigningError{Op: "NewSigner", Err: err}
	}
	if priv == nil {
		return nil, &SigningError{Op: "NewSigner", Err: ErrMalformedKey, Info: "nil private key"}
	}
	if err := checkPublicKey(&priv.PublicKey); err != nil {
		return nil, &SigningError{Op: "NewSigner", Err: err}
	}
	if err := priv.Validate(); err != nil {
		return nil, &SigningError{Op: "NewSigner", Err: fmt.Errorf("%w: %w", ErrMalformedKey, err)}
	}

	return &Signer{
		key:    priv,
		params: params,
		random: rand.Reader,
	}, nil
}

// Sign hashes message and signs the digest. With PSS a fresh random salt is
// drawn on every call.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	h := s.params.Hash.New()
	h.Write(message)
	digest := h.Sum(nil)

	var (
		signature []byte
		err       error
	)
	switch s.params.Padding {
	case PaddingPSS:
		var opts *rsa.PSSOptions
		opts, err = s.params.pssOptions(&s.key.PublicKey)
		if err == nil {
			signature, err = rsa.SignPSS(s.random, s.key, s.params.Hash, digest, opts)
		}
	case PaddingPKCS1v15:
		signature, err = rsa.SignPKCS1v15(s.random, s.key, s.params.Hash, digest)
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedParams, s.params.Padding)
	}
	if err != nil {
		return nil, &SigningError{Op: "Sign", Err: err, Info: s.params.String()}
	}
	return signature, nil
}

func (s *Signer) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

func (s *Signer) Params() Params {
	return s.params
}

// Sign signs message with DefaultParams.
func Sign(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	s, err := NewSigner(priv, DefaultParams())
	if err != nil {
		return nil, err
	}
	return s.Sign(message)
}
