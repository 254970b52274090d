package main

import (
	"fmt"
	"os"

	"github.com/Tricker-z/CoFuzz/cmd/cofuzz/app"
)

func main() {
	if err := app.NewCofuzzCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
