package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is the normal case.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], newApplication(os.Stdout, os.Stderr)))
}
