package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tokenswap/cmd"
)

func main() {
	// .env is optional; config falls back to defaults and SWAP_* env vars
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
