package main

import (
	"os"

	tenglaaficmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi"
)

func main() {
	cmd := tenglaaficmder.NewTenglaafiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
