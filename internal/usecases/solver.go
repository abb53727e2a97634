package usecases

import (
	"context"
	"fmt"

	"powsign/internal/domain"
	"powsign/pkg/pow/hashcash"
	"powsign/pkg/sig/rsapss"
)

// SolverUsecase defines the prover side: solve a challenge for an identity
// and sign the resulting message.
type SolverUsecase interface {
	Prove(ctx context.Context, identity string, challenge domain.Challenge) (*domain.Proof, error)
}

type solverUsecaseImpl struct {
	signer    *rsapss.Signer
	publicKey []byte
	workers   int
}

// NewSolverUsecase binds the solver to one session key pair.
func NewSolverUsecase(keys *rsapss.KeyPair, params rsapss.Params, workers int) (SolverUsecase, error) {
	signer, err := rsapss.NewSigner(keys.Private, params)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}
	der, err := rsapss.MarshalPublicKey(keys.Public)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	return &solverUsecaseImpl{
		signer:    signer,
		publicKey: der,
		workers:   workers,
	}, nil
}

func (s *solverUsecaseImpl) Prove(ctx context.Context, identity string, challenge domain.Challenge) (*domain.Proof, error) {
	pow, err := hashcash.NewProofOfWork(challenge.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hashcash: %w", err)
	}

	solution, err := pow.SolveParallel(ctx, identity, s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to solve challenge: %w", err)
	}

	signature, err := s.signer.Sign(solution.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign solution: %w", err)
	}

	return &domain.Proof{
		Identity:  identity,
		Nonce:     solution.Nonce,
		Signature: signature,
		PublicKey: s.publicKey,
	}, nil
}
