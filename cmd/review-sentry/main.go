// Package main is the review-sentry GitHub App: a webhook server that reviews
// pull requests against the task they implement, plus a one-shot review
// command.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
