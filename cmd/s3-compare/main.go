// Command s3-compare reports keys present in one S3 bucket and missing from
// another by comparing their inventory feeds through Athena.
package main

import (
	"fmt"
	"os"

	"github.com/forter/s3-compare/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
