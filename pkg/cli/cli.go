package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Run executes the sitedoc command line with args and returns the process
// exit code. A nil deps uses the process streams and environment.
func Run(ctx context.Context, deps *Deps, args []string) (int, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deps == nil {
		deps = &Deps{}
	}
	if deps.Streams.In == nil {
		deps.Streams.In = os.Stdin
	}
	if deps.Streams.Out == nil {
		deps.Streams.Out = os.Stdout
	}
	if deps.Streams.Err == nil {
		deps.Streams.Err = os.Stderr
	}
	defer func() { _ = deps.close() }()

	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetIn(deps.Streams.In)
	cmd.SetOut(deps.Streams.Out)
	cmd.SetErr(deps.Streams.Err)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return 130, err
		}
		_, _ = fmt.Fprintf(deps.Streams.Err, "Error: %s\n", renderUserError(err))
		return 1, err
	}
	return 0, nil
}
