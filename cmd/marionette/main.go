package main

import (
	"fmt"
	"os"

	"github.com/finchley/marionette/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "marionette:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
