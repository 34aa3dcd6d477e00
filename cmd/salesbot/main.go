package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/salesbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "salesbot:", err)
		os.Exit(1)
	}
}
