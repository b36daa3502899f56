package main

import (
	"os"

	"flowgate/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
