// Package rsapss signs and verifies messages with RSA, RSASSA-PSS by default.
//
// Every scheme choice (hash, padding, salt length, modulus size and public
// exponent) lives in Params and is passed in explicitly. DefaultParams is
// RSA-2048, e=65537, SHA-256, PSS with MGF1-SHA256 and the largest salt the
// key allows, so two signatures over one message never repeat.
package rsapss

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"strconv"
	"strings"
)

// Padding selects the RSA signature encoding.
type Padding int

const (
	PaddingPSS Padding = iota
	PaddingPKCS1v15
)

func (p Padding) String() string {
	switch p {
	case PaddingPSS:
		return "pss"
	case PaddingPKCS1v15:
		return "pkcs1v15"
	default:
		return "padding(" + strconv.Itoa(int(p)) + ")"
	}
}

// Salt length sentinels. Positive values are used as given.
const (
	// SaltLengthMax uses the largest salt the modulus can encode.
	SaltLengthMax = -1
	// SaltLengthHash uses a salt as long as the hash output.
	SaltLengthHash = -2
)

const (
	DefaultKeyBits        = 2048
	DefaultPublicExponent = 65537

	minKeyBits = 1024
)

// Params is the full signature scheme configuration.
type Params struct {
	Hash           crypto.Hash
	Padding        Padding
	SaltLength     int
	KeyBits        int
	PublicExponent int
}

func DefaultParams() Params {
	return Params{
		Hash:           crypto.SHA256,
		Padding:        PaddingPSS,
		SaltLength:     SaltLengthMax,
		KeyBits:        DefaultKeyBits,
		PublicExponent: DefaultPublicExponent,
	}
}

// Validate rejects combinations this package cannot honour.
func (p Params) Validate() error {
	switch p.Hash {
	case crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return fmt.Errorf("%w: hash %v", ErrUnsupportedParams, p.Hash)
	}
	if !p.Hash.Available() {
		return fmt.Errorf("%w: hash %v not linked", ErrUnsupportedParams, p.Hash)
	}

	switch p.Padding {
	case PaddingPSS:
		if p.SaltLength == 0 || p.SaltLength < SaltLengthHash {
			return fmt.Errorf("%w: salt length %d", ErrUnsupportedParams, p.SaltLength)
		}
	case PaddingPKCS1v15:
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedParams, p.Padding)
	}

	if p.KeyBits < minKeyBits {
		return fmt.Errorf("%w: key size %d below %d bits", ErrUnsupportedParams, p.KeyBits, minKeyBits)
	}
	// crypto/rsa always generates keys with e = 65537
	if p.PublicExponent != DefaultPublicExponent {
		return fmt.Errorf("%w: public exponent %d", ErrUnsupportedParams, p.PublicExponent)
	}
	return nil
}

// SaltLengthFor resolves the salt length for a given key.
func (p Params) SaltLengthFor(pub *rsa.PublicKey) int {
	switch p.SaltLength {
	case SaltLengthMax:
		return (pub.N.BitLen()-1+7)/8 - 2 - p.Hash.Size()
	case SaltLengthHash:
		return p.Hash.Size()
	default:
		return p.SaltLength
	}
}

func (p Params) pssOptions(pub *rsa.PublicKey) (*rsa.PSSOptions, error) {
	salt := p.SaltLengthFor(pub)
	if salt <= 0 {
		return nil, fmt.Errorf("%w: %d bit key cannot hold a %s salt", ErrMalformedKey, pub.N.BitLen(), hashName(p.Hash))
	}
	return &rsa.PSSOptions{SaltLength: salt, Hash: p.Hash}, nil
}

func (p Params) String() string {
	salt := strconv.Itoa(p.SaltLength)
	switch p.SaltLength {
	case SaltLengthMax:
		salt = "max"
	case SaltLengthHash:
		salt = "hash"
	}
	return fmt.Sprintf("rsa-%d/e=%d/%v/%s/salt=%s", p.KeyBits, p.PublicExponent, p.Padding, hashName(p.Hash), salt)
}

// ParseHash maps a configuration name to a hash.
func ParseHash(name string) (crypto.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("%w: hash %q", ErrUnsupportedParams, name)
}

// ParsePadding maps a configuration name to a padding scheme.
func ParsePadding(name string) (Padding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "pss":
		return PaddingPSS, nil
	case "pkcs1v15", "pkcs1":
		return PaddingPKCS1v15, nil
	}
	return 0, fmt.Errorf("%w: padding %q", ErrUnsupportedParams, name)
}

// ParseSaltLength accepts "max", "hash" or a positive byte count.
func ParseSaltLength(value string) (int, error) {
	switch strings.ToLower(value) {
	case "max", "":
		return SaltLengthMax, nil
	case "hash":
		return SaltLengthHash, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: salt length %q", ErrUnsupportedParams, value)
	}
	return n, nil
}

func hashName(h crypto.Hash) string {
	switch h {
	case crypto.SHA256:
		return "sha256"
	case crypto.SHA384:
		return "sha384"
	case crypto.SHA512:
		return "sha512"
	}
	return h.String()
}
