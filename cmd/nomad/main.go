// Command nomad runs a MADS optimization from a NOMAD-style parameter file.
//
// Grounded on rwcarlsen-cloudlus's cmd/pswarmdriver/main.go for the overall
// "parse flags, build a solver, signal-handle, print final results" shape,
// with the flag surface replaced by github.com/urfave/cli/v2 per spec.md
// §6's richer CLI contract (-h [topic], -v, -d, -p <file>, exit codes
// 0/1/2) instead of pswarmdriver's stdlib flag package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/param"
	"github.com/rwcarlsen/nomad/solver"
)

// Exit codes per spec.md §6: 0 normal, 1 error, 2 interrupted.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 2
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	var interrupted bool

	app := &cli.App{
		Name:                 "nomad",
		Usage:                "derivative-free blackbox optimization via Mesh Adaptive Direct Search",
		Version:              "0.1.0",
		HideHelpCommand:      true,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "p",
				Aliases: []string{"param"},
				Usage:   "parameter file path",
			},
			&cli.BoolFlag{
				Name:  "d",
				Usage: "disable warnings",
			},
		},
		Action: func(c *cli.Context) error {
			return optimize(c, &interrupted)
		},
	}

	err := app.Run(args)
	switch {
	case interrupted:
		fmt.Fprintln(os.Stderr, "nomad: interrupted")
		return exitInterrupted
	case err == nil:
		return exitOK
	default:
		if ec, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, "nomad:", ec.Error())
			return ec.ExitCode()
		}
		fmt.Fprintln(os.Stderr, "nomad:", err)
		return exitError
	}
}

func optimize(c *cli.Context, interrupted *bool) error {
	path := c.String("p")
	if path == "" {
		return cli.Exit("missing required -p <parameter file>", exitError)
	}

	p, err := param.Load(path)
	if err != nil {
		return cli.Exit(err, exitError)
	}
	if p.BBExe == "" {
		return cli.Exit("BB_EXE is required", exitError)
	}

	logger := zap.NewNop()
	if !c.Bool("d") {
		if prod, zerr := zap.NewProduction(); zerr == nil {
			logger = prod
		}
	}
	defer logger.Sync()
	log := logger.Sugar()

	evaluator := blackbox.NewEvaluator(outputTypes(p.BBOutputType), splitCmd(p.BBExe)...)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		*interrupted = true
		cancel()
	}()
	defer signal.Stop(sigs)

	ec, err := solver.New(p, evaluator, log)
	if err != nil {
		return cli.Exit(err, exitError)
	}
	defer ec.Close()

	best, stop, err := ec.Run(ctx)
	if *interrupted {
		return nil
	}
	if err != nil {
		return cli.Exit(err, exitError)
	}

	fmt.Printf("stop reason: %v\n", stop)
	if best != nil {
		fmt.Printf("best: %v\n", best)
	} else {
		fmt.Println("no feasible or infeasible incumbent found")
	}
	return nil
}

// outputTypes maps BB_OUTPUT_TYPE keyword strings to blackbox.OutputKind,
// per spec.md §6's BB_OUTPUT_TYPE vocabulary (OBJ, EB, PB/CSTR, everything
// else ignored as an extra echoed column).
func outputTypes(kws []string) []blackbox.OutputKind {
	out := make([]blackbox.OutputKind, len(kws))
	for i, kw := range kws {
		switch kw {
		case "OBJ":
			out[i] = blackbox.OutputObj
		case "EB":
			out[i] = blackbox.OutputEB
		case "PB", "CSTR":
			out[i] = blackbox.OutputPB
		default:
			out[i] = blackbox.OutputExtra
		}
	}
	return out
}

// splitCmd splits BB_EXE's whitespace-joined executable+args back into argv
// form (param.Params.set re-joins BB_EXE's fields with a single space).
func splitCmd(bbExe string) []string {
	var out []string
	start := -1
	for i, r := range bbExe {
		if r == ' ' {
			if start >= 0 {
				out = append(out, bbExe[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, bbExe[start:])
	}
	return out
}
