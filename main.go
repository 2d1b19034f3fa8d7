package main

import (
	"os"

	"github.com/dmorgan81/dallecli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
