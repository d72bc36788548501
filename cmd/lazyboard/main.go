package main

import (
	"os"

	"github.com/Joseda-hg/lazyboard/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
