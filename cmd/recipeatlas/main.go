package main

import (
	"os"

	"github.com/recipeatlas/recipeatlas/cmd/recipeatlas/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
