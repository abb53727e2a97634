package usecases

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"powsign/internal/domain"
	"powsign/pkg/pow/hashcash"
	"powsign/pkg/sig/rsapss"
)

// ProofUsecase defines the verifier side: what to ask for and how to judge
// a submitted proof.
type ProofUsecase interface {
	Challenge() domain.Challenge
	ValidateProof(proof *domain.Proof) (*domain.Receipt, error)
}

type proofUsecaseImpl struct {
	hashcash *hashcash.ProofOfWork
	params   rsapss.Params
	accepted *cache.Cache
}

// NewProofUsecase initializes the proofUsecaseImpl with the specified
// difficulty. Accepted messages are remembered for replayTTL, which must be
// positive.
func NewProofUsecase(difficulty uint64, params rsapss.Params, replayTTL time.Duration) (ProofUsecase, error) {
	pow, err := hashcash.NewProofOfWork(difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hashcash: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("failed to initialize verifier: %w", err)
	}
	if replayTTL <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrReplayWindow, replayTTL)
	}
	return &proofUsecaseImpl{
		hashcash: pow,
		params:   params,
		accepted: cache.New(replayTTL, 2*replayTTL),
	}, nil
}

func (p *proofUsecaseImpl) Challenge() domain.Challenge {
	return domain.Challenge{
		Version:    domain.ProtocolVersion,
		Difficulty: p.hashcash.GetDifficulty(),
	}
}

// ValidateProof checks the work first since it costs one hash, then the
// signature. Only fully valid proofs are recorded for replay detection.
func (p *proofUsecaseImpl) ValidateProof(proof *domain.Proof) (*domain.Receipt, error) {
	message := proof.Message()
	digest := hashcash.Sum(message)
	if !digest.HasPrefixZeros(int(p.hashcash.GetDifficulty())) {
		return nil, fmt.Errorf("%w: digest %s", ErrInvalidSolution, digest)
	}

	pub, err := rsapss.ParsePublicKey(proof.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	verifier, err := rsapss.NewVerifier(pub, p.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	ok, err := verifier.Verify(message, proof.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	fingerprint, err := rsapss.Fingerprint(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	if err := p.accepted.Add(string(message), fingerprint, cache.DefaultExpiration); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReplayedProof, message)
	}

	return &domain.Receipt{
		Digest:      digest.Hex(),
		Fingerprint: fingerprint,
	}, nil
}
