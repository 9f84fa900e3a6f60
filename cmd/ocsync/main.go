package main

import (
	"os"

	"github.com/nordlicht-dev/ocsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
