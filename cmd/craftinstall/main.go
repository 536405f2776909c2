package main

import (
	"context"
	"fmt"
	"os"

	"craftinstall/internal/cli"
)

// Version is stamped by ldflags during release builds
var Version = "dev"

func main() {
	if Version != "dev" {
		cli.SetVersion(Version)
	}
	if err := cli.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
