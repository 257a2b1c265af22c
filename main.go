package main

import (
	"os"

	"github.com/Effec77/aidflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
