package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
)

type metadata struct {
	ctx     context.Context
	workers int
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	app := newApp(ctx, os.Stdout, os.Stderr)

	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		cancel()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, w io.Writer, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "powsign"
	app.Usage = "solve a hashcash proof of work and sign it with RSA"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.IntFlag{
			Name:  "workers, w",
			Value: 0,
			Usage: " solver goroutines `COUNT`, 0 for one per CPU",
		},
	}

	schemeFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "hash",
			Value: "sha256",
			Usage: " signature digest `NAME` [sha256|sha384|sha512]",
		},
		cli.StringFlag{
			Name:  "padding",
			Value: "pss",
			Usage: " padding `SCHEME` [pss|pkcs1v15]",
		},
		cli.StringFlag{
			Name:  "salt",
			Value: "max",
			Usage: " PSS salt `LENGTH` [max|hash|bytes]",
		},
		cli.IntFlag{
			Name:  "bits",
			Value: 2048,
			Usage: " RSA modulus `BITS`",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "demo",
			Usage:     "generate a key pair, solve, sign and verify",
			ArgsUsage: "\n   (* = required)",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "identity, i",
					Value: "pi",
					Usage: " identity `STRING` the work is bound to",
				},
				cli.Uint64Flag{
					Name:  "difficulty, d",
					Value: 4,
					Usage: " leading zero hex `DIGITS`",
				},
			}, schemeFlags...),
			Action: runDemo,
		},
		{
			Name:      "solve",
			Usage:     "find the smallest nonce for an identity",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "identity, i",
					Value: "",
					Usage: "*identity `STRING` the work is bound to",
				},
				cli.Uint64Flag{
					Name:  "difficulty, d",
					Value: 4,
					Usage: " leading zero hex `DIGITS`",
				},
				cli.DurationFlag{
					Name:  "timeout, t",
					Value: 0,
					Usage: " give up after `DURATION`, 0 waits forever",
				},
			},
			Action: runSolve,
		},
		{
			Name:      "verify-pow",
			Usage:     "check a nonce against an identity",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "identity, i",
					Value: "",
					Usage: "*identity `STRING` the work is bound to",
				},
				cli.Uint64Flag{
					Name:  "nonce, n",
					Value: 0,
					Usage: "*claimed `NONCE`",
				},
				cli.Uint64Flag{
					Name:  "difficulty, d",
					Value: 4,
					Usage: " leading zero hex `DIGITS`",
				},
			},
			Action: runVerifyPow,
		},
	}

	app.Before = func(c *cli.Context) error {
		c.App.Metadata["config"] = &metadata{
			ctx:     ctx,
			workers: c.GlobalInt("workers"),
			verbose: c.GlobalBool("verbose"),
			e:       c.App.ErrWriter,
			w:       c.App.Writer,
		}
		return nil
	}

	return app
}
