package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Ctrl-C already interrupts visibly; don't echo the context error.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "reelsmith:", err)
		}
		os.Exit(1)
	}
}
