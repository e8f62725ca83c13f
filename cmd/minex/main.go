// Package main is the single-binary entrypoint for minex.
package main

import "github.com/v4ex/minex/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
