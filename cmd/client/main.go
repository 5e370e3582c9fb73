// Package main is the entry point for the crowdfund CLI.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/atinyakov/crowdfund/cmd/client/cmd"
)

var (
	version   string
	buildDate string
)

func main() {
	if err := cmd.Execute(version, buildDate); err != nil {
		os.Exit(1)
	}
}
