// Command oncoannot runs the annotation server and its client tooling.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Keksclan/oncoannot/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
