// Package main is the entry point for the crateship CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/crateship/internal/cli"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cli.SetVersionInfo(version, commit, date)

	os.Exit(run(context.Background(), sigChan, cli.ExecuteContext, cli.Cleanup, os.Stderr, os.Exit))
}

// run executes the CLI and maps its outcome to an exit code: 0 on success,
// 130 when interrupted, 1 otherwise. A second signal, or a shutdown that
// outlives shutdownTimeout, forces exit(1).
func run(parent context.Context, sigChan <-chan os.Signal, execute func(context.Context) error,
	cleanup func(), stderr io.Writer, exit func(int)) int {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup

	if sigChan != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var sig os.Signal
			select {
			case sig = <-sigChan:
			case <-done:
				return
			}
			fmt.Fprintf(stderr, "\nReceived signal %v, initiating graceful shutdown...\n", sig)
			cancel()

			shutdownTimer := time.NewTimer(shutdownTimeout)
			defer shutdownTimer.Stop()

			select {
			case sig = <-sigChan:
				fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
				exit(1)
			case <-shutdownTimer.C:
				fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
				exit(1)
			case <-done:
				// A second signal that raced with completion still forces exit.
				select {
				case sig = <-sigChan:
					fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
					exit(1)
				default:
				}
			}
		}()
	}

	exitCode := 0
	if err := execute(ctx); err != nil {
		switch {
		case ctx.Err() != nil:
			fmt.Fprintln(stderr, "Operation canceled")
			exitCode = 130
		case errors.Is(err, cli.ErrReported):
			exitCode = 1
		default:
			// Print the error since SilenceErrors is enabled in cobra
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = 1
		}
	}

	close(done)
	wg.Wait()

	cleanup()
	return exitCode
}
