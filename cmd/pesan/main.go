// Package main provides the pesan voice ordering CLI and kiosk server.
//
// Usage:
//
//	pesan [flags] <command> [args]
//
// Commands:
//
//	serve   - Run the kiosk server (REST API and browser websocket)
//	talk    - Order by voice from this machine's microphone and speaker
//	chat    - Order by typing
//	menu    - Print the catalog, optionally filtered by a query
//	key     - Manage the stored Gemini API key
//	orders  - List stored orders
//
// Configuration:
//
//	The CLI stores its API key in ~/.pesan/config.yaml.
//	The server reads its settings from the environment and an optional .env file.
package main

import (
	"fmt"
	"os"

	"github.com/satriahrh/pesan/cmd/pesan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
