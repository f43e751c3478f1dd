// Package main provides the dosecast command line.
package main

import "github.com/breatheroute/dosecast/internal/cli"

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	cli.Execute(Version)
}
