package main

import (
	"os"

	"github.com/GoGoWen/impala/cli"
)

func main() {
	os.Exit(cli.Execute())
}
