// Command grader grades images against the configured vision model slots.
package main

import (
	"fmt"
	"os"

	"github.com/nulzo/vision-grader/cmd/grader/commands"
)

// version is set at build time via ldflags.
var version = "v0.0.0"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
