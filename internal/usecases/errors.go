package usecases

import "errors"

// Proof rejection reasons
var (
	ErrInvalidSolution  = errors.New("invalid proof of work solution")
	ErrInvalidKey       = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("signature does not verify")
	ErrReplayedProof    = errors.New("proof already accepted")
)

// ErrReplayWindow rejects a replay window that would never expire entries.
var ErrReplayWindow = errors.New("replay window must be positive")
