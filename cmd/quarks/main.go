package main

import (
	"os"

	"github.com/rustyeddy/quarks/cmd/quarks/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
