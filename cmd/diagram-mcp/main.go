package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ironsheep/uml-structure-mcp/internal/config"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
	"github.com/ironsheep/uml-structure-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("diagram-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("diagram-mcp - MCP server for UML class diagram structure extraction")
			fmt.Println()
			fmt.Println("Usage: diagram-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  DIAGRAM_MCP_LOG_LEVEL=debug     Enable debug logging")
			fmt.Println("  DIAGRAM_MCP_CONFIG=<path>       YAML configuration file")
			fmt.Println("  DIAGRAM_MCP_DEBUG_DIR=<path>    Write debug overlays to this directory")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	level := slog.LevelInfo
	if os.Getenv("DIAGRAM_MCP_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
		log.Printf("Diagram MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if path := os.Getenv("DIAGRAM_MCP_CONFIG"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}
	if dir := os.Getenv("DIAGRAM_MCP_DEBUG_DIR"); dir != "" {
		cfg.DebugDir = dir
	}

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Server setup error: %v", err)
	}
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
