package main

import (
	"os"

	"github.com/heyztb/go-mcauth/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
