// Command moviechat seeds a semantic memory with movies from a document
// database and lets a tool-calling chat model answer questions about them.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/moviechat-go/cmd/moviechat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
