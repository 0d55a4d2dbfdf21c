package main

import (
	"fmt"
	"os"

	"github.com/pacerhq/pacer/cmd/pacer/commands"
	"github.com/pacerhq/pacer/logger"
)

func main() {
	defer logger.Cleanup()

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
