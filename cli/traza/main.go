package main

import (
	"os"

	trazacmder "github.com/atelieredu/traza/cmd/traza"
)

func main() {
	cmd := trazacmder.NewTrazaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
