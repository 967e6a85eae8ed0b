package main

import (
	"os"

	"github.com/smallbiznis/telcopulse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
