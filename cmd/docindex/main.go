package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/JanSimek/fallout2-modding/internal/errors"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		// flag and argument errors surface before any command body runs
		if !commandStarted && errors.CodeOf(err) == errors.InternalError {
			err = errors.New(errors.InvalidInvocation, err.Error(), nil, nil)
		}
		printError(os.Stderr, err)
	}
	os.Exit(errors.ExitCode(err))
}

// printError writes err, its detail lines and any suggested fixes to w.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var docErr *errors.DocError
	if !stderrors.As(err, &docErr) {
		return
	}
	if lines, ok := docErr.Details.([]string); ok {
		for _, line := range lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	for _, fix := range docErr.SuggestedFixes {
		if fix.Command != "" {
			fmt.Fprintf(w, "Hint: %s (%s)\n", fix.Description, fix.Command)
		} else {
			fmt.Fprintf(w, "Hint: %s\n", fix.Description)
		}
	}
}
