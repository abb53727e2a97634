package rsapss

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// KeyPair holds both halves of a session key. Only Public may be handed to
// a verifying party.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair creates a fresh key pair from crypto/rand.
func GenerateKeyPair(params Params) (*KeyPair, error) {
	return GenerateKeyPairFrom(rand.Reader, params)
}

// GenerateKeyPairFrom creates a key pair reading entropy from random.
func GenerateKeyPairFrom(random io.Reader, params Params) (*KeyPair, error) {
	if err := params.Validate(); err != nil {
		return nil, &GenerationError{Op: "GenerateKeyPair", Err: err}
	}

	priv, err := rsa.GenerateKey(random, params.KeyBits)
	if err != nil {
		return nil, &GenerationError{Op: "GenerateKeyPair", Err: err, Info: fmt.Sprintf("%d bits", params.KeyBits)}
	}
	if priv.N.BitLen() != params.KeyBits || priv.E != params.PublicExponent {
		return nil, &GenerationError{
			Op:   "GenerateKeyPair",
			Err:  ErrMalformedKey,
			Info: fmt.Sprintf("got %d bits e=%d", priv.N.BitLen(), priv.E),
		}
	}

	return &KeyPair{
		Private: priv,
		Public:  &priv.PublicKey,
	}, nil
}

// MarshalPublicKey encodes a public key as PKIX DER.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	if err := checkPublicKey(pub); err != nil {
		return nil, &KeyError{Op: "MarshalPublicKey", Err: err}
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, &KeyError{Op: "MarshalPublicKey", Err: err}
	}
	return der, nil
}

// ParsePublicKey decodes a PKIX DER public key, which must be RSA.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, &KeyError{Op: "ParsePublicKey", Err: fmt.Errorf("%w: %w", ErrMalformedKey, err)}
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, &KeyError{Op: "ParsePublicKey", Err: ErrMalformedKey, Info: fmt.Sprintf("%T is not rsa", key)}
	}
	return pub, nil
}

// Fingerprint is the hex SHA3-256 of the PKIX encoding of pub.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := MarshalPublicKey(pub)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}

func checkPublicKey(pub *rsa.PublicKey) error {
	switch {
	case pub == nil:
		return fmt.Errorf("%w: nil public key", ErrMalformedKey)
	case pub.N == nil || pub.N.Sign() <= 0:
		return fmt.Errorf("%w: missing modulus", ErrMalformedKey)
	case pub.E < 3 || pub.E&1 == 0:
		return fmt.Errorf("%w: invalid public exponent %d", ErrMalformedKey, pub.E)
	}
	return nil
}
