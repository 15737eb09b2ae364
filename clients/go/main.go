// fheai - command line client for the FHE-AI ledger
package main

import (
	"fmt"
	"os"

	"github.com/novastreamlab/FHE-AI/clients/go/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
