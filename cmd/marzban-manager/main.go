// File: cmd/marzban-manager/main.go
package main

import (
	"os"

	"marzban-manager/internal/cli"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{Version: version, Commit: commit}))
}
