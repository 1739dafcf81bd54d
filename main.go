// cmap - Concept map editor with undo history.
//
// cmap keeps a concept map of labeled nodes and directed edges in a local
// workspace and edits it from the command line, from YAML edit scripts, or
// over MCP.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/conceptmap-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
