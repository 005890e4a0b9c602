// Command kairoictl is the command-line client for kairoid's KCP control
// port: it formats a single instruction line, sends it over TCP, and
// prints the OK/ERROR response.
package main

import (
	"fmt"
	"os"

	"kairoi/cmd/kairoictl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
