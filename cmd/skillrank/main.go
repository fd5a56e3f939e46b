// Command skillrank inspects a skill corpus from the command line: BM25
// scores, matcher verdicts and the final selection for a message, plus a
// sync of a skills directory into PostgreSQL.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
