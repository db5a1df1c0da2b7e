// Command mdspace converts synthetic event runs into multi-dimensional event
// workspaces, bins them onto histogram grids and renders inspection plots.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("mdspace: %v", err)
		os.Exit(1)
	}
}
