package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/image-margin-mcp/internal/config"
	"github.com/ironsheep/image-margin-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-margin-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "crop" {
		code := runCrop(ctx, os.Args[2:], cfg, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	if cfg.Debug {
		log.Printf("Image Margin MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("threshold=%d workers=%d jpeg_quality=%d", cfg.Threshold, cfg.Workers, cfg.JPEGQuality)
	}

	server.Version = Version
	srv := server.New(cfg)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printUsage() {
	fmt.Println("image-margin-mcp - detect and crop blank image margins")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  image-margin-mcp                 Run the MCP server on stdin/stdout")
	fmt.Println("  image-margin-mcp crop [flags] files or directories...")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Crop flags:")
	fmt.Println("  -threshold N     Margin brightness threshold, 0-255")
	fmt.Println("  -workers N       Images processed at once")
	fmt.Println("  -out DIR         Write cropped_<name> files here (default: beside each source)")
	fmt.Println("  -zip FILE        Also write every output into one ZIP archive")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Enable debug logging\n", config.EnvLogLevel)
	fmt.Printf("  %s=240       Default threshold\n", config.EnvThreshold)
	fmt.Printf("  %s=N           Default worker count\n", config.EnvWorkers)
	fmt.Printf("  %s=90       JPEG output quality\n", config.EnvJPEGQuality)
	fmt.Println()
	fmt.Println("Without a sub-command the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
