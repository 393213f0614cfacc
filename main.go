package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/maastricht-university/therapy-tagger/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.Execute(ctx, cli.NewRootCommand())
}
