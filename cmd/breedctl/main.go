// Command breedctl classifies dog images and manages the image ledger from
// the command line.
package main

import (
	"context"
	"os"
	"os/signal"
)

// execute runs the command line and exits non-zero on failure.
func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newCLI()
	if err := c.execute(ctx, c.rootCmd()); err != nil {
		stop()
		os.Exit(1)
	}
}

func main() {
	execute()
}
