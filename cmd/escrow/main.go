package main

import (
	"github.com/code-payments/code-escrow/internal/cli"
)

func main() {
	cli.Execute()
}
