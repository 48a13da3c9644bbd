// Claimd evaluates health insurance claims against policy clauses.
//
// By default it serves the HTTP API. With -mcp it speaks MCP over stdio
// instead, for use as a tool server.
//
// Configuration is read from ~/.config/claimd/config.yaml and CLAIMD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the HTTP API with defaults
//	claimd
//
//	# Serve MCP tools over stdio
//	claimd -mcp
//
//	# Override settings via environment
//	CLAIMD_SERVER_PORT=9090 CLAIMD_EMBEDDINGS_PROVIDER=hash claimd
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

type options struct {
	configPath string
	mcp        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file (default ~/.config/claimd/config.yaml)")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  claimd [-config path] [-mcp]   Start the claim evaluation server\n")
			fmt.Fprintf(os.Stderr, "  claimd version                 Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "claimd: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("claimd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
