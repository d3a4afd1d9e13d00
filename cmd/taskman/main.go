package main

import (
	"os"

	"github.com/Makepad-fr/taskman/internal/cli"
)

func main() {
	// Hand everything to the CLI runner; no args opens the TUI.
	code := cli.Run(os.Args[1:], cli.Options{
		Interactive: isTerminal(os.Stdin),
	})
	os.Exit(code)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
