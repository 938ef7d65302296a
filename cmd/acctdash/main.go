package main

import (
	"os"

	"github.com/rustyeddy/acctdash/cmd/acctdash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
