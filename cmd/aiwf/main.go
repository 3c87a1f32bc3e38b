package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	err := root.Execute()
	if err != nil && err.Error() != "" {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(GetExitCode(err))
}
