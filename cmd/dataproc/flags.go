package main

import (
	"flag"
	"fmt"
	"os"
)

// newFlagSet builds a flag.FlagSet for the named subcommand, printing a
// "dataproc <name>" usage line on -h.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dataproc %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs
}
