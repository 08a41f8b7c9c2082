package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-desk/internal/app"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
)

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop MCP clients)")
	configFile := flag.String("config", "vire-desk.toml", "Path to config file")
	apiURL := flag.String("api-url", "", "Backend base URL (overrides config)")
	apiMode := flag.String("mode", "", "Backend mode: http or memory (overrides config)")
	flag.Parse()

	var files []string
	if _, err := os.Stat(*configFile); err == nil {
		files = append(files, *configFile)
	}
	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *apiURL, *apiMode)
	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "config error: %s\n", issue)
		}
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	application, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if _, err := application.Start(context.Background()); err != nil {
		logger.Warn().Str("error", err.Error()).Msg("session restore failed")
	}

	mcpServer := server.NewMCPServer(
		cfg.MCP.Name,
		config.GetVersion(),
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, application)

	if *stdio {
		// Stdio transport: reads stdin, writes stdout
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error().Str("error", err.Error()).Msg("stdio server error")
			os.Exit(1)
		}
		return
	}

	port := cfg.MCP.Port
	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	logger.Info().Str("port", port).Msg("starting MCP streamable HTTP")
	if err := httpServer.Start(":" + port); err != nil {
		logger.Error().Str("error", err.Error()).Msg("http server error")
		os.Exit(1)
	}
}
