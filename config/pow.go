package config

import (
	"fmt"

	"powsign/pkg/sig/rsapss"
)

type Pow struct {
	Difficulty uint64 `yaml:"difficulty" env:"DIFFICULTY" env-default:"4"`
	Workers    int    `yaml:"workers" env:"WORKERS" env-default:"0" env-description:"solver goroutines, 0 for one per CPU"`
}

// Crypto carries the signature scheme. Both ends must be configured alike;
// nothing here is negotiated on the wire.
type Crypto struct {
	HashAlgorithm  string `yaml:"hash_algorithm" env:"HASH_ALGORITHM" env-default:"sha256"`
	PaddingScheme  string `yaml:"padding_scheme" env:"PADDING_SCHEME" env-default:"pss"`
	SaltLength     string `yaml:"salt_length" env:"SALT_LENGTH" env-default:"max"`
	KeySizeBits    int    `yaml:"key_size_bits" env:"KEY_SIZE_BITS" env-default:"2048"`
	PublicExponent int    `yaml:"public_exponent" env:"PUBLIC_EXPONENT" env-default:"65537"`
}

// Params converts the configuration into validated scheme parameters.
func (c Crypto) Params() (rsapss.Params, error) {
	hash, err := rsapss.ParseHash(c.HashAlgorithm)
	if err != nil {
		return rsapss.Params{}, err
	}
	padding, err := rsapss.ParsePadding(c.PaddingScheme)
	if err != nil {
		return rsapss.Params{}, err
	}
	salt, err := rsapss.ParseSaltLength(c.SaltLength)
	if err != nil {
		return rsapss.Params{}, err
	}

	params := rsapss.Params{
		Hash:           hash,
		Padding:        padding,
		SaltLength:     salt,
		KeyBits:        c.KeySizeBits,
		PublicExponent: c.PublicExponent,
	}
	if err := params.Validate(); err != nil {
		return rsapss.Params{}, fmt.Errorf("invalid crypto configuration: %w", err)
	}
	return params, nil
}
