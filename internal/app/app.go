// Package app wires the oligoscreen command tree. Run and RunContext are
// the single entry points used by cmd/oligoscreen and the integration
// tests.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"oligoscreen/internal/logging"
	"oligoscreen/internal/version"
	"oligoscreen/internal/writers"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2 // bad flags, arguments or input files
	ExitRuntime   = 3 // screening, storage or output failure
	ExitCancelled = 130
)

// runtimeError marks failures after inputs were accepted.
type runtimeError struct{ err error }

func (e runtimeError) Error() string { return e.err.Error() }
func (e runtimeError) Unwrap() error { return e.err }

func runtimeErr(err error) error {
	if err == nil {
		return nil
	}
	return runtimeError{err}
}

// env is shared by every command of one invocation.
type env struct {
	stdout, stderr io.Writer
	quiet, verbose bool
	configPath     string
	log            *logrus.Logger
	intr           *interrupter
}

// interrupter turns interrupts into cancellation. A command may register a
// graceful handler that absorbs the first interrupt; any later one cancels.
type interrupter struct {
	mu       sync.Mutex
	graceful func()
	cancel   context.CancelFunc
}

// onFirst installs f for the next interrupt and returns a func that
// removes it again.
func (i *interrupter) onFirst(f func()) (release func()) {
	i.mu.Lock()
	i.graceful = f
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		i.graceful = nil
		i.mu.Unlock()
	}
}

func (i *interrupter) interrupt() {
	i.mu.Lock()
	f := i.graceful
	i.graceful = nil
	i.mu.Unlock()
	if f != nil {
		f()
		return
	}
	i.cancel()
}

func (e *env) logger() *logrus.Logger {
	if e.log == nil {
		e.log = logging.New(e.stderr, e.quiet, e.verbose)
	}
	return e.log
}

func (e *env) warnf(format string, a ...any) {
	logging.Warnf(e.stderr, e.quiet, format, a...)
}

func newRoot(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "oligoscreen",
		Short: "Screen a template for conserved, exclusive oligo sites",
		Long: `Slide every oligo length over a template, align each window against a set
of reference sequences, cluster the matches into (degenerate) variants and
report how many variants each site needs to reach a coverage threshold.
Optionally score every site against an exclusivity set.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("oligoscreen version {{.Version}}\n")
	pf := root.PersistentFlags()
	pf.BoolVarP(&e.quiet, "quiet", "q", false, "Only warnings and errors on stderr")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "Debug logging on stderr")
	pf.StringVar(&e.configPath, "config", "", "Config file (yaml, json or toml) with analysis settings")

	root.AddCommand(
		newScreenCmd(e),
		newWorklistCmd(e),
		newRethresholdCmd(e),
		newSummaryCmd(e),
		newRunsCmd(e),
		newVersionCmd(e),
	)
	return root
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "oligoscreen version %s\n", version.Version)
			return runtimeErr(err)
		},
	}
}

// RunSignals executes argv and returns the process exit code. Each value
// received on sigs is an interrupt: it cancels the run, unless the running
// command asked to wind down gracefully first.
func RunSignals(ctx context.Context, argv []string, stdout, stderr io.Writer, sigs <-chan os.Signal) int {
	return (&env{stdout: stdout, stderr: stderr}).run(ctx, argv, sigs)
}

// RunContext executes argv and returns the process exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return RunSignals(ctx, argv, stdout, stderr, nil)
}

func (e *env) run(ctx context.Context, argv []string, sigs <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.intr = &interrupter{cancel: cancel}
	if sigs != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-sigs:
					e.intr.interrupt()
				case <-done:
					return
				}
			}
		}()
	}

	stdout, stderr := e.stdout, e.stderr
	root := newRoot(e)
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if len(argv) == 0 {
		if err := root.Help(); err != nil && !writers.IsBrokenPipe(err) {
			_, _ = fmt.Fprintln(stderr, err)
			return ExitRuntime
		}
		return ExitOK
	}
	return exitCode(root.ExecuteContext(ctx), stderr)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	var rt runtimeError
	switch {
	case err == nil, writers.IsBrokenPipe(err):
		return ExitOK
	case errors.Is(err, context.Canceled):
		_, _ = fmt.Fprintln(stderr, "cancelled")
		return ExitCancelled
	case errors.As(err, &rt):
		_, _ = fmt.Fprintln(stderr, err)
		return ExitRuntime
	default:
		_, _ = fmt.Fprintln(stderr, err)
		return ExitUsage
	}
}
