package main

import (
	"fmt"
	"os"

	"carbooking/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.OpenFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
