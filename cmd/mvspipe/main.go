package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mvspipe/internal/services"
)

const (
	exitFailure  = 1
	exitRejected = 2
	exitBusy     = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(report(os.Stderr, err))
}

// report prints err and returns the process exit status for it. Interrupts
// exit quietly.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "mvspipe:", err)
	}
	return exitCode(err)
}

// exitCode separates requests that were refused before any job started from
// jobs that ran and failed.
func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrStageBusy):
		return exitBusy
	case errors.Is(err, services.ErrInvalidWorkspace),
		errors.Is(err, services.ErrPreconditionUnmet),
		services.IsFatal(err):
		return exitRejected
	default:
		return exitFailure
	}
}
