// Package hashcash implements a hashcash-style proof of work over SHA-256.
//
// A solution for an identity is the smallest non-negative nonce such that the
// hex digest of identity ++ decimal(nonce) starts with difficulty '0'
// characters. Expected work is 16^difficulty hashes. Verifying a claimed
// nonce costs a single hash.
package hashcash

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// checkInterval is how many nonces are tried between context checks.
const checkInterval = 1 << 12

var (
	ErrDifficultyRange = errors.New("difficulty out of acceptable range")
	ErrSearchCancelled = errors.New("proof of work search cancelled")
	ErrNonceExhausted  = errors.New("nonce space exhausted")

	// returned by a bounded walk that passed the best known nonce
	errBoundExceeded = errors.New("search bound exceeded")
)

// Message is identity ++ decimal(nonce). It is never modified after creation.
type Message []byte

func (m Message) String() string {
	return string(m)
}

// Solution binds a found nonce to its message and digest.
type Solution struct {
	Identity string
	Nonce    uint64
	Message  Message
	Digest   Digest
}

// ProofOfWork encapsulates a proof-of-work mechanism.
type ProofOfWork struct {
	difficultyLevel uint64
}

// NewProofOfWork initializes a ProofOfWork with a specified difficulty.
func NewProofOfWork(difficulty uint64) (*ProofOfWork, error) {
	if difficulty > maxDifficulty {
		return nil, fmt.Errorf("%w: difficulty must be between 0 and %d", ErrDifficultyRange, maxDifficulty)
	}

	return &ProofOfWork{
		difficultyLevel: difficulty,
	}, nil
}

func (pow *ProofOfWork) GetDifficulty() uint64 {
	return pow.difficultyLevel
}

// BuildMessage concatenates the identity with the decimal nonce.
func BuildMessage(identity string, nonce uint64) Message {
	return appendCandidate(make([]byte, 0, len(identity)+20), identity, nonce)
}

func appendCandidate(buf []byte, identity string, nonce uint64) []byte {
	buf = append(buf[:0], identity...)
	return strconv.AppendUint(buf, nonce, 10)
}

// ExpectedAttempts is the mean number of hashes needed at a difficulty.
func ExpectedAttempts(difficulty uint64) float64 {
	return math.Pow(16, float64(difficulty))
}

// Verify checks whether nonce solves the puzzle for identity.
func (pow *ProofOfWork) Verify(identity string, nonce uint64) bool {
	return pow.VerifyMessage(BuildMessage(identity, nonce))
}

// VerifyMessage checks the digest of an already built message.
func (pow *ProofOfWork) VerifyMessage(message []byte) bool {
	return Sum(message).HasPrefixZeros(int(pow.difficultyLevel))
}

// Solve searches nonces 0, 1, 2, ... and returns the first one whose digest
// meets the difficulty. The search is unbounded; it stops early only when ctx
// is done, returning ErrSearchCancelled.
func (pow *ProofOfWork) Solve(ctx context.Context, identity string) (*Solution, error) {
	nonce, digest, err := search(ctx, identity, int(pow.difficultyLevel), 0, 1, nil)
	if err != nil {
		return nil, err
	}
	return newSolution(identity, nonce, digest), nil
}

func newSolution(identity string, nonce uint64, digest Digest) *Solution {
	return &Solution{
		Identity: identity,
		Nonce:    nonce,
		Message:  BuildMessage(identity, nonce),
		Digest:   digest,
	}
}

// search walks start, start+step, start+2*step, ... until a digest matches.
// When bound is non-nil the walk gives up with errBoundExceeded once the
// candidate passes the value bound returns.
func search(ctx context.Context, identity string, difficulty int, start, step uint64, bound func() uint64) (uint64, Digest, error) {
	buf := make([]byte, 0, len(identity)+20)
	var i uint64
	for nonce := start; ; nonce += step {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, Digest{}, fmt.Errorf("%w: %w", ErrSearchCancelled, err)
			}
			if bound != nil && nonce > bound() {
				return 0, Digest{}, errBoundExceeded
			}
		}
		i++

		buf = appendCandidate(buf, identity, nonce)
		digest := Sum(buf)
		if digest.HasPrefixZeros(difficulty) {
			return nonce, digest, nil
		}

		if nonce > math.MaxUint64-step {
			return 0, Digest{}, ErrNonceExhausted
		}
	}
}
