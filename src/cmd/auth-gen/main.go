// FILE: logpulse/src/cmd/auth-gen/main.go
package main

import (
	"fmt"
	"os"

	"logpulse/src/internal/auth"
)

func main() {
	if err := auth.NewGeneratorCommand().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
