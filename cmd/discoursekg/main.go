package main

import (
	"errors"
	"fmt"
	"os"

	"discoursekg/cmd/discoursekg/commands"
)

func main() {
	err := commands.NewRootCmd().Execute()
	if err == nil {
		os.Exit(0)
	}

	fmt.Fprintln(os.Stderr, err)

	var opErr commands.OperatorError
	if errors.As(err, &opErr) {
		os.Exit(2)
	}
	os.Exit(1)
}
