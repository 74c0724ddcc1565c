// Command steward is a streaming personal finance assistant.
//
// Usage:
//
//	steward serve                  Run the HTTP chat service
//	steward ask --user 1 "..."     Ask one question from the terminal
//	steward version                Print the version
//
// Configuration is read from steward.yaml (or --config) and environment
// variables such as LLM_PROVIDER, OPENAI_API_KEY and DB_PATH.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "steward: %v\n", err)
		os.Exit(1)
	}
}
