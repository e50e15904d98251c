// Command migrate manages the storefront schema with goose and loads catalog
// seed files.
//
//	migrate up | down | status | version
//	migrate to 20260301120200
//	migrate create add_order_notes
//	migrate validate
//	migrate seed internal/catalog/testdata/catalog.seed.json
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
