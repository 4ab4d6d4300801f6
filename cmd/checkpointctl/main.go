package main

import (
	"os"

	"github.com/randalmurphal/checkpointer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
