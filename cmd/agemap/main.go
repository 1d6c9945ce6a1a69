// Command agemap annotates building footprints with construction years
// from parcel records and writes the result as GeoJSON.
package main

import (
	"fmt"
	"os"

	"github.com/cbusmaps/agemap/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
