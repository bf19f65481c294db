// Package main is the scorectl entry point.
package main

import (
	"os"

	"github.com/1prspctv/memory-match-madness/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
