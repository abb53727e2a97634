package hashcash

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the length of a SHA-256 digest in bytes.
const DigestSize = sha256.Size

// maxDifficulty is the number of hex digits in a digest.
const maxDifficulty = DigestSize * 2

// Digest is the SHA-256 output over a message.
type Digest [DigestSize]byte

// Sum hashes data with SHA-256.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Hex returns the lowercase hexadecimal form of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// LeadingZeroDigits counts the leading '0' characters of the hex form.
func (d Digest) LeadingZeroDigits() int {
	n := 0
	for _, b := range d {
		if b>>4 != 0 {
			return n
		}
		n++
		if b&0x0f != 0 {
			return n
		}
		n++
	}
	return n
}

// HasPrefixZeros reports whether the hex form of the digest starts with
// difficulty '0' characters. Each unit of difficulty is one hex digit, not one bit.
func (d Digest) HasPrefixZeros(difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > maxDifficulty {
		return false
	}
	full := difficulty / 2
	for i := 0; i < full; i++ {
		if d[i] != 0 {
			return false
		}
	}
	if difficulty%2 == 1 {
		return d[full]>>4 == 0
	}
	return true
}
