// Package main - trading activity snapshot CLI
//
// Usage:
//
//	go run ./cmd/snapshot run --use-fixtures
//	go run ./cmd/snapshot migrate
//	go run ./cmd/snapshot seed
//	go run ./cmd/snapshot verify
//	go run ./cmd/snapshot serve
package main

import (
	"os"

	"trade-snapshot-lab/cmd/snapshot/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
