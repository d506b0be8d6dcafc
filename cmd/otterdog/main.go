package main

import (
	"os"

	"github.com/autumnfound/otterdog/pkg/cli"
)

// set by the release build.
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
