// Command repflow-mcp serves the RepFlow MCP tools over stdio, backed by a
// remote RepFlow server's REST API. Point an MCP client at this binary to
// inspect the live workout and query history from anywhere on the tailnet.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/repflow/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepFlow server URL (e.g. https://repflow.tail1234.ts.net)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repflow-mcp", Version)
		return
	}

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: repflow-mcp -server <URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client := mcp.NewHTTPClient(*serverURL)
	s := mcp.New(client, client, Version, log)

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
