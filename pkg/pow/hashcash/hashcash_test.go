package hashcash

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProofOfWork(t *testing.T) {
	// Valid difficulty test
	pow, err := NewProofOfWork(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pow.GetDifficulty() != 5 {
		t.Fatalf("expected difficulty 5, got %d", pow.GetDifficulty())
	}

	_, err = NewProofOfWork(0)
	if err != nil {
		t.Fatalf("difficulty 0 should be accepted, got %v", err)
	}

	_, err = NewProofOfWork(64)
	if err != nil {
		t.Fatalf("difficulty 64 should be accepted, got %v", err)
	}

	_, err = NewProofOfWork(65)
	if !errors.Is(err, ErrDifficultyRange) {
		t.Fatalf("expected ErrDifficultyRange for difficulty 65, got %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	assert.Equal(t, "pi0", BuildMessage("pi", 0).String())
	assert.Equal(t, "pi38347", BuildMessage("pi", 38347).String())
	assert.Equal(t, "18446744073709551615", BuildMessage("", 18446744073709551615).String())
	assert.Equal(t, "héllo42", string(BuildMessage("héllo", 42)))
}

func TestSolveDifficultyZero(t *testing.T) {
	pow, err := NewProofOfWork(0)
	require.NoError(t, err)

	solution, err := pow.Solve(context.Background(), "pi")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), solution.Nonce)
	assert.Equal(t, "pi0", solution.Message.String())
}

func TestSolveKnownNonces(t *testing.T) {
	cases := []struct {
		identity   string
		difficulty uint64
		nonce      uint64
		digest     string
	}{
		{"pi", 1, 8, "04a96644c75036e00d36416e851a734be739e81c667d3fbd4870665e2849497a"},
		{"pi", 2, 52, "007477b138a4d58c8a17423f6b9b76b40210feb17a0fb70d15471360d2270396"},
		{"pi", 3, 930, "0008db479a408d18d77b674874f7240eb80000b2cb4a2c9f4cf51584607722e6"},
		{"challenge", 2, 84, "00f034b536db1957f2f24b7c0c81a1a057241785ae532327ee4082e52fd5d791"},
		{"", 1, 39, "0b918943df0962bc7a1824c0555a389347b4febdc7cf9d1254406d80ce44e3f9"},
	}

	for _, c := range cases {
		pow, err := NewProofOfWork(c.difficulty)
		require.NoError(t, err)

		solution, err := pow.Solve(context.Background(), c.identity)
		require.NoError(t, err)
		assert.Equal(t, c.nonce, solution.Nonce, "identity %q difficulty %d", c.identity, c.difficulty)
		assert.Equal(t, c.digest, solution.Digest.Hex())
		assert.Equal(t, Sum(solution.Message), solution.Digest)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	pow, err := NewProofOfWork(1)
	require.NoError(t, err)

	first, err := pow.Solve(context.Background(), "pi")
	require.NoError(t, err)
	second, err := pow.Solve(context.Background(), "pi")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first.Digest.Hex(), "0"))
}

func TestFindSolutionWithHigherDifficulty(t *testing.T) {
	pow, err := NewProofOfWork(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	solution, err := pow.Solve(context.Background(), "pi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if solution.Nonce != 38347 {
		t.Fatalf("expected nonce 38347, got %d", solution.Nonce)
	}
	if !strings.HasPrefix(solution.Digest.Hex(), "0000") {
		t.Fatalf("digest %s lacks four leading zeros", solution.Digest)
	}
	if !pow.Verify("pi", solution.Nonce) {
		t.Fatalf("expected valid solution but verification failed")
	}
	if pow.Verify("pi", solution.Nonce+1) {
		t.Fatalf("nonce+1 should not verify")
	}
}

func TestVerify(t *testing.T) {
	pow, err := NewProofOfWork(2)
	require.NoError(t, err)

	assert.True(t, pow.Verify("pi", 52))
	assert.True(t, pow.VerifyMessage([]byte("pi52")))
	assert.False(t, pow.Verify("pi", 8))
	assert.False(t, pow.Verify("pi", 53))
}

func TestSolveCancelled(t *testing.T) {
	pow, err := NewProofOfWork(64)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	solution, err := pow.Solve(ctx, "pi")
	assert.Nil(t, solution)
	assert.ErrorIs(t, err, ErrSearchCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSolveAlreadyCancelled(t *testing.T) {
	pow, err := NewProofOfWork(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pow.Solve(ctx, "pi")
	assert.ErrorIs(t, err, ErrSearchCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpectedAttempts(t *testing.T) {
	assert.Equal(t, 1.0, ExpectedAttempts(0))
	assert.Equal(t, 65536.0, ExpectedAttempts(4))
}
