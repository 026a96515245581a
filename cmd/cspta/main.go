// Command cspta runs the context-sensitive pointer analysis on a program
// description and reports points-to sets, the call graph and taint flows.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
