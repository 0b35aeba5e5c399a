package main

import (
	"context"
	"os"

	"github.com/jlrickert/sitedoc/pkg/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env in the working directory is optional; values already in the
	// environment win.
	_ = godotenv.Load()

	ctx := context.Background()
	code, _ := cli.Run(ctx, &cli.Deps{
		Streams: cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
		Getenv:  os.Getenv,
	}, os.Args[1:])
	os.Exit(code)
}
