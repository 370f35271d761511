package main

import (
	"context"
	"os"

	"github.com/denismitr/shift/examples/users"
	"github.com/denismitr/shift/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), users.Definitions(), os.Args[1:], os.Stdout))
}
