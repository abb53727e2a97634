package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"powsign/pkg/pow/hashcash"
)

func runSolve(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	identity, err := checkIdentity(c.String("identity"))
	if nil != err {
		return err
	}
	difficulty := c.Uint64("difficulty")

	pow, err := hashcash.NewProofOfWork(difficulty)
	if nil != err {
		return err
	}

	ctx := m.ctx
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if m.verbose {
		fmt.Fprintf(m.e, "expected attempts: %.0f\n", hashcash.ExpectedAttempts(difficulty))
	}

	started := time.Now()
	solution, err := pow.SolveParallel(ctx, identity, m.workers)
	if nil != err {
		return err
	}

	out := struct {
		Identity   string `json:"identity"`
		Difficulty uint64 `json:"difficulty"`
		Nonce      uint64 `json:"nonce"`
		Message    string `json:"message"`
		Digest     string `json:"digest"`
		Attempts   uint64 `json:"attempts"`
		Elapsed    string `json:"elapsed"`
	}{
		Identity:   identity,
		Difficulty: difficulty,
		Nonce:      solution.Nonce,
		Message:    solution.Message.String(),
		Digest:     solution.Digest.Hex(),
		Attempts:   solution.Nonce + 1,
		Elapsed:    time.Since(started).String(),
	}
	if err := printJson(m.w, out); nil != err {
		return err
	}
	return nil
}
