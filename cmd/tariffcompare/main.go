package main

import (
	"os"

	"github.com/bher20/tariffcompare/cmd/tariffcompare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
