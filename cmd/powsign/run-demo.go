package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"powsign/config"
	"powsign/pkg/pow/hashcash"
	"powsign/pkg/sig/rsapss"
)

var (
	errRejected = errors.New("signature over the solved message was rejected")
	errAccepted = errors.New("signature verified for a different message")
)

type demoResult struct {
	Identity    string `json:"identity"`
	Difficulty  uint64 `json:"difficulty"`
	Nonce       uint64 `json:"nonce"`
	Message     string `json:"message"`
	Digest      string `json:"digest"`
	Scheme      string `json:"scheme"`
	Fingerprint string `json:"fingerprint"`
	Signature   string `json:"signature"`
	Verified    bool   `json:"verified"`
	NextVerify  bool   `json:"next_nonce_verified"`
	Elapsed     string `json:"elapsed"`
}

func runDemo(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	identity := c.String("identity")
	difficulty := c.Uint64("difficulty")

	params, err := schemeParams(c)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "generating %s key pair\n", params)
	}
	keys, err := rsapss.GenerateKeyPair(params)
	if nil != err {
		return err
	}

	pow, err := hashcash.NewProofOfWork(difficulty)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "solving %q at difficulty %d (~%.0f hashes)\n", identity, difficulty, hashcash.ExpectedAttempts(difficulty))
	}
	started := time.Now()
	solution, err := pow.SolveParallel(m.ctx, identity, m.workers)
	if nil != err {
		return err
	}
	elapsed := time.Since(started)

	signer, err := rsapss.NewSigner(keys.Private, params)
	if nil != err {
		return err
	}
	signature, err := signer.Sign(solution.Message)
	if nil != err {
		return err
	}

	verifier, err := rsapss.NewVerifier(keys.Public, params)
	if nil != err {
		return err
	}
	verified, err := verifier.Verify(solution.Message, signature)
	if nil != err {
		return err
	}
	nextVerified, err := verifier.Verify(hashcash.BuildMessage(identity, solution.Nonce+1), signature)
	if nil != err {
		return err
	}

	fingerprint, err := rsapss.Fingerprint(verifier.Public())
	if nil != err {
		return err
	}

	err = printJson(m.w, demoResult{
		Identity:    identity,
		Difficulty:  difficulty,
		Nonce:       solution.Nonce,
		Message:     solution.Message.String(),
		Digest:      solution.Digest.Hex(),
		Scheme:      signer.Params().String(),
		Fingerprint: fingerprint,
		Signature:   base64.StdEncoding.EncodeToString(signature),
		Verified:    verified,
		NextVerify:  nextVerified,
		Elapsed:     elapsed.String(),
	})
	if nil != err {
		return err
	}

	if !verified {
		return errRejected
	}
	if nextVerified {
		return errAccepted
	}
	return nil
}

// schemeParams reads the signature flags through the same conversion the
// services use for their environment.
func schemeParams(c *cli.Context) (rsapss.Params, error) {
	scheme := config.Crypto{
		HashAlgorithm:  c.String("hash"),
		PaddingScheme:  c.String("padding"),
		SaltLength:     c.String("salt"),
		KeySizeBits:    c.Int("bits"),
		PublicExponent: rsapss.DefaultPublicExponent,
	}
	return scheme.Params()
}
