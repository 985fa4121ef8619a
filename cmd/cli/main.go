package main

import (
	"os"

	"synthlab/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
