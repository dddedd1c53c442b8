package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/starford/notecli/internal"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := internal.Run(context.Background(), os.Args, internal.WithVersion(version)); err != nil {
		fmt.Fprintln(os.Stderr, "notecli:", err)
		os.Exit(1)
	}
}
