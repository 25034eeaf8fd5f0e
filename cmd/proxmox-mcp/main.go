package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/proxmoxmcp/proxmox-mcp/internal/config"
	"github.com/proxmoxmcp/proxmox-mcp/internal/logging"
	"github.com/proxmoxmcp/proxmox-mcp/internal/metrics"
	"github.com/proxmoxmcp/proxmox-mcp/internal/server"
	"github.com/proxmoxmcp/proxmox-mcp/internal/tools"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "proxmox-mcp",
	Short:   "MCP gateway for Proxmox VE clusters",
	Long:    `proxmox-mcp exposes Proxmox VE node, VM, container, template, backup and task management as MCP tools over stdio`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("proxmox-mcp %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: $PROXMOX_MCP_CONFIG)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	// Baseline logger for early startup messages
	logging.Init(logging.Config{
		Format:    "json",
		Level:     "info",
		Component: "proxmox-mcp",
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Re-initialize logging with configuration-driven settings. The
	// stdio transport owns stdout, so logs must stay on stderr.
	logging.Init(logging.Config{
		Format:    cfg.Logging.Format,
		Level:     cfg.Logging.Level,
		Component: "proxmox-mcp",
	})

	client, err := proxmox.NewClient(proxmox.ClientConfig{
		Host:        cfg.APIHost(),
		User:        cfg.Auth.User,
		Password:    cfg.Auth.Password,
		TokenName:   cfg.Auth.TokenName,
		TokenValue:  cfg.Auth.TokenValue,
		Fingerprint: cfg.Proxmox.Fingerprint,
		VerifySSL:   cfg.Proxmox.VerifySSL,
		Timeout:     cfg.APITimeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Proxmox client")
	}
	log.Info().Str("host", cfg.Proxmox.Host).Str("user", cfg.Auth.User).
		Msg("Connected to Proxmox VE API")

	if cfg.Metrics.Addr != "" {
		metrics.Serve(cfg.Metrics.Addr)
	}

	srv := server.New(tools.NewDispatcher(client), Version)
	if err := srv.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server terminated")
	}
}
