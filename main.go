package main

import (
	"os"

	"github.com/ThomasCrouzet/openzfs-stack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
