// Command riskctl assesses neurological risk from the terminal, manages the
// assessment history and runs database migrations.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
