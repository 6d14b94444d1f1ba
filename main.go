package main

import (
	"os"

	"github.com/querybee/querybee/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
