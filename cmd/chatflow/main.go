package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/chatflow/internal/cli"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
