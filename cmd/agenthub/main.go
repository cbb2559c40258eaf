package main

import (
	"github.com/fialabdata/agenthub/internal/hub/cli"
)

func main() {
	cli.Execute()
}
