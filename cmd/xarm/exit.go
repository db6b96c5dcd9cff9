package main

import (
	"errors"
	"strings"

	"github.com/shreethaar/rev-arm/builder"
)

// Exit codes let calling scripts tell compile failures from run failures.
const (
	exitOK     = 0
	exitConfig = 1
	exitBuild  = 2
	exitRun    = 3
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case builder.IsRunError(err):
		return exitRun
	case builder.IsBuildError(err):
		return exitBuild
	default:
		return exitConfig
	}
}

// describe returns the message printed for err. Output a tool already
// streamed to the terminal is replaced by its summary; anything else is
// printed in full.
func describe(err error) string {
	msg := err.Error()
	var toolErr *builder.ToolError
	if errors.As(err, &toolErr) && toolErr.Streamed {
		return strings.Replace(msg, toolErr.Error(), toolErr.Summary(), 1)
	}
	return msg
}
