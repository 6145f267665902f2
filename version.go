package main

import (
	"fmt"

	"github.com/cargohold/cargohold/internal/version"
)

// printVersion writes the injected version + commit info.
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
