// Command flowrtctl is the generated top level of spec.md §6: a small
// program that assembles one demonstration dataflow graph with
// program.Builder and runs it to completion with program.Runtime.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
