package rsapss

import (
	"crypto"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, "rsa-2048/e=65537/pss/sha256/salt=max", p.String())

	pub := &rsa.PublicKey{N: new(big.Int).Lsh(big.NewInt(1), 2047), E: 65537}
	assert.Equal(t, 222, p.SaltLengthFor(pub))
}

func TestParamsValidate(t *testing.T) {
	mutate := map[string]func(*Params){
		"md5 hash":      func(p *Params) { p.Hash = crypto.MD5 },
		"zero hash":     func(p *Params) { p.Hash = 0 },
		"bad padding":   func(p *Params) { p.Padding = Padding(9) },
		"zero salt":     func(p *Params) { p.SaltLength = 0 },
		"negative salt": func(p *Params) { p.SaltLength = -3 },
		"small key":     func(p *Params) { p.KeyBits = 512 },
		"exponent":      func(p *Params) { p.PublicExponent = 3 },
	}

	for name, fn := range mutate {
		p := DefaultParams()
		fn(&p)
		assert.ErrorIs(t, p.Validate(), ErrUnsupportedParams, name)
	}

	p := DefaultParams()
	p.Padding = PaddingPKCS1v15
	p.SaltLength = 0
	assert.NoError(t, p.Validate())
}

func TestParseHelpers(t *testing.T) {
	h, err := ParseHash("SHA-256")
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA256, h)

	h, err = ParseHash("sha512")
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA512, h)

	_, err = ParseHash("md5")
	assert.ErrorIs(t, err, ErrUnsupportedParams)

	pad, err := ParsePadding("PSS")
	require.NoError(t, err)
	assert.Equal(t, PaddingPSS, pad)

	_, err = ParsePadding("pkcs1-v1_5")
	assert.ErrorIs(t, err, ErrUnsupportedParams)
	pad, err = ParsePadding("pkcs1v15")
	require.NoError(t, err)
	assert.Equal(t, PaddingPKCS1v15, pad)

	salt, err := ParseSaltLength("max")
	require.NoError(t, err)
	assert.Equal(t, SaltLengthMax, salt)

	salt, err = ParseSaltLength("hash")
	require.NoError(t, err)
	assert.Equal(t, SaltLengthHash, salt)

	salt, err = ParseSaltLength("32")
	require.NoError(t, err)
	assert.Equal(t, 32, salt)

	_, err = ParseSaltLength("0")
	assert.ErrorIs(t, err, ErrUnsupportedParams)
	_, err = ParseSaltLength("lots")
	assert.ErrorIs(t, err, ErrUnsupportedParams)
}
