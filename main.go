package main

import (
	"fmt"
	"os"

	"blocknotes/internal/cmd"
)

func main() {
	root := cmd.Root()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
