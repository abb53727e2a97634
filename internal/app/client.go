package app

import (
	"context"
	"fmt"
	"log/slog"

	"powsign/config"
	"powsign/internal/client/tcp"
	"powsign/internal/usecases"
	"powsign/pkg/sig/rsapss"
)

const (
	ErrPowInit    = "failed to initialize pow"
	ErrCryptoInit = "failed to initialize signature scheme"
	ErrRunServer  = "failed server run"
)

// RunClient started client application
func RunClient(ctx context.Context) error {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.Default()
	logger = logger.With("Service", cfg.Client.Name)

	params, err := cfg.Crypto.Params()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCryptoInit, err)
	}

	// a fresh key pair per run, never persisted
	keys, err := rsapss.GenerateKeyPair(params)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCryptoInit, err)
	}
	fingerprint, err := rsapss.Fingerprint(keys.Public)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCryptoInit, err)
	}
	logger.Info("session key generated", "scheme", params.String(), "fingerprint", fingerprint)

	solverUsecase, err := usecases.NewSolverUsecase(keys, params, cfg.Pow.Workers)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrPowInit, err)
	}

	client := tcp.NewClient(
		&tcp.Config{
			ServerAddr:     cfg.Client.ServerAddr,
			Identity:       cfg.Client.Identity,
			ConnectTimeout: cfg.Client.ConnectTimeout,
			RequestTimeout: cfg.Client.RequestTimeout,
			RetryAttempts:  cfg.Client.RetryAttempts,
			RetryDelay:     cfg.Client.RetryDelay,
		},
		solverUsecase,
		logger,
	)

	receipt, err := client.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	logger.Info("receipt",
		"identity", cfg.Client.Identity,
		"digest", receipt.Digest,
		"fingerprint", receipt.Fingerprint)

	return nil
}
