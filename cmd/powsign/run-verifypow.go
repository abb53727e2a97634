package main

import (
	"fmt"

	"github.com/urfave/cli"

	"powsign/pkg/pow/hashcash"
)

func runVerifyPow(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	identity, err := checkIdentity(c.String("identity"))
	if nil != err {
		return err
	}
	if !c.IsSet("nonce") {
		return fmt.Errorf("nonce is required")
	}
	nonce := c.Uint64("nonce")
	difficulty := c.Uint64("difficulty")

	pow, err := hashcash.NewProofOfWork(difficulty)
	if nil != err {
		return err
	}

	message := hashcash.BuildMessage(identity, nonce)
	digest := hashcash.Sum(message)
	valid := pow.VerifyMessage(message)

	out := struct {
		Message    string `json:"message"`
		Digest     string `json:"digest"`
		Zeros      int    `json:"leading_zeros"`
		Difficulty uint64 `json:"difficulty"`
		Valid      bool   `json:"valid"`
	}{
		Message:    message.String(),
		Digest:     digest.Hex(),
		Zeros:      digest.LeadingZeroDigits(),
		Difficulty: difficulty,
		Valid:      valid,
	}
	if err := printJson(m.w, out); nil != err {
		return err
	}

	if !valid {
		return fmt.Errorf("nonce %d does not meet difficulty %d", nonce, difficulty)
	}
	return nil
}

func checkIdentity(identity string) (string, error) {
	if "" == identity {
		return "", fmt.Errorf("identity is required")
	}
	return identity, nil
}
