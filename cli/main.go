// ABOUTME: Entry point for the jobboard CLI
// ABOUTME: Terminal client bootstrapping an authenticated job board session

package main

import (
	"fmt"
	"os"

	"github.com/codersneeded/miniapp/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
