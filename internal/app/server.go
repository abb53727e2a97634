package app

import (
	"context"
	"fmt"
	"log/slog"

	"powsign/config"
	"powsign/internal/server/tcp"
	"powsign/internal/usecases"
)

// RunServer started server application
func RunServer(ctx context.Context) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.Default()
	logger = logger.With("Service", cfg.Server.Name)

	params, err := cfg.Crypto.Params()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCryptoInit, err)
	}

	proofUsecase, err := usecases.NewProofUsecase(cfg.Pow.Difficulty, params, cfg.Server.ReplayTTL)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrPowInit, err)
	}

	logger.Info("verifier configured",
		"difficulty", cfg.Pow.Difficulty,
		"scheme", params.String(),
		"replay_ttl", cfg.Server.ReplayTTL.String())

	server := tcp.NewServer(
		&tcp.Config{
			Address:   cfg.Server.Addr,
			KeepAlive: cfg.Server.KeepAlive,
			Deadline:  cfg.Server.Deadline,
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		},
		proofUsecase,
		logger,
	)

	if err = server.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrRunServer, err)
	}

	return nil
}
