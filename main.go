// The main package for the leadgen executable.
package main

import (
	"github.com/JakeFAU/leadgen-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
