package hashcash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumMatchesKnownDigest(t *testing.T) {
	assert.Equal(t,
		"2c8590d339c0675364545c039123de45df1dd92997743e3113cc11e9d4910082",
		Sum([]byte("pi0")).Hex())
}

func TestLeadingZeroDigits(t *testing.T) {
	var d Digest
	assert.Equal(t, 64, d.LeadingZeroDigits())

	d[0] = 0x01
	assert.Equal(t, 1, d.LeadingZeroDigits())

	d[0] = 0x10
	assert.Equal(t, 0, d.LeadingZeroDigits())

	d[0], d[1] = 0x00, 0x0f
	assert.Equal(t, 3, d.LeadingZeroDigits())
}

// The predicate must agree with the textual hex-prefix check for every
// difficulty, including out of range values.
func TestHasPrefixZerosMatchesHex(t *testing.T) {
	inputs := []string{"pi8", "pi52", "pi930", "pi38347", "challenge26387", "pi0"}

	for _, in := range inputs {
		d := Sum([]byte(in))
		hexForm := d.Hex()
		for difficulty := -1; difficulty <= 66; difficulty++ {
			want := difficulty <= 0 ||
				(difficulty <= 64 && strings.HasPrefix(hexForm, strings.Repeat("0", difficulty)))
			assert.Equal(t, want, d.HasPrefixZeros(difficulty), "%s at %d", in, difficulty)
		}
		assert.Equal(t, len(hexForm)-len(strings.TrimLeft(hexForm, "0")), d.LeadingZeroDigits())
	}
}
