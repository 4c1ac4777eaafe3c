package main

import (
	"log"

	"github.com/pycontext/pycontext/internal/cli"
)

func main() {
	// diagnostics go to stderr; stdout is reserved for command output
	// and MCP protocol frames
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("pycontext: ")

	cli.Execute()
}
