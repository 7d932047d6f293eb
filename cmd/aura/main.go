// Package main is the single-binary entrypoint for the aura companion
// daemon.
package main

import "github.com/aura-core/aura/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
