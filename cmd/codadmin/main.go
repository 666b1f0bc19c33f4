// Package main provides the codadmin CLI: one invocation mounts one resource
// view, drives it, prints the result, and unmounts it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/internal/session"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp()
	defer a.close()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		printFieldErrors(stderr, err)
		return exitCode(err)
	}
	return exitSuccess
}

// userErrors are the failures caused by the invocation rather than the
// environment.
var userErrors = []error{
	types.ErrValidation,
	types.ErrUnknownResource,
	types.ErrUnknownField,
	types.ErrUnknownActor,
	types.ErrWrongActor,
	types.ErrNotConfirmed,
	types.ErrNotLoggedIn,
	types.ErrForbidden,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidScope,
	types.ErrNoUploadTarget,
	types.ErrPageSizeInvalid,
	types.ErrRetryInvalid,
	types.ErrTimeoutInvalid,
	types.ErrBaseURLEmpty,
	types.ErrBaseURLInvalid,
	session.ErrNoToken,
}

// usageError marks bad arguments or flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var se *engine.SaveError
	if errors.As(err, &se) {
		switch se.Kind {
		case engine.KindClientValidation, engine.KindServerValidation:
			return exitUserError
		default:
			return exitSysError
		}
	}
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// checkArgs wraps a cobra argument validator so its failures count as usage
// errors.
func checkArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}
