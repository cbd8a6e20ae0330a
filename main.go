package main

import (
	"os"

	"series-tracker/cli"
)

func main() {
	os.Exit(cli.Execute())
}
