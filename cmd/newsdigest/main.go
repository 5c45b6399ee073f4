// newsdigest crawls configured news sources once a day, enriches the fresh
// items with a text-generation model and delivers a digest.
//
// Usage:
//
//	newsdigest run   [--day=YYYY-MM-DD] [--format=text|table|markdown|json] [--dry-run]
//	newsdigest serve
//	newsdigest check
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
