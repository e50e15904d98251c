// Command cartctl inspects and edits persisted carts in a file-backed cart
// directory. It is meant for support and local development.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
