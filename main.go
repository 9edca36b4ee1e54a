// meetverse-processing is the post-meeting processing service for Meetverse.
package main

import (
	"fmt"
	"os"

	"github.com/mejba13/meetverse-ai-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
