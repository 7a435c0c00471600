package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/services/items"
	"github.com/ternarybob/ordino/internal/services/schemas"
	"github.com/ternarybob/ordino/internal/services/workflow"
	"github.com/ternarybob/ordino/internal/storage/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "ordino.toml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(common.GetFullVersion())
		return 0
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// stdout carries the MCP framing; everything else goes to stderr/file.
	logger := common.InitLogger(config)
	common.PrintBanner()

	storageManager, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		return 1
	}
	defer storageManager.Close()

	schemaService := schemas.NewService(logger, config.Server.ConfigDir)
	workflowService := workflow.NewService(storageManager, schemaService, logger)
	recommender := workflow.NewRecommender(storageManager, logger)
	itemService := items.NewService(storageManager, schemaService, recommender, logger)

	mcpServer := server.NewMCPServer(
		"ordino",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Item tools
	mcpServer.AddTool(createManageItemsTool(), handleManageItems(itemService, logger))
	mcpServer.AddTool(createQueryItemsTool(), handleQueryItems(itemService, logger))
	mcpServer.AddTool(createWorkTreeTool(), handleCreateWorkTree(itemService, logger))

	// Note tools
	mcpServer.AddTool(createManageNotesTool(), handleManageNotes(storageManager, itemService, logger))
	mcpServer.AddTool(createQueryNotesTool(), handleQueryNotes(storageManager, logger))

	// Dependency tools
	mcpServer.AddTool(createManageDependenciesTool(), handleManageDependencies(storageManager, logger))
	mcpServer.AddTool(createQueryDependenciesTool(), handleQueryDependencies(storageManager, logger))

	// Workflow tools
	mcpServer.AddTool(createAdvanceItemTool(), handleAdvanceItem(workflowService, logger))
	mcpServer.AddTool(createCompleteTreeTool(), handleCompleteTree(workflowService, logger))
	mcpServer.AddTool(createGetNextStatusTool(), handleGetNextStatus(workflowService, logger))
	mcpServer.AddTool(createGetNextItemTool(), handleGetNextItem(recommender, logger))
	mcpServer.AddTool(createGetBlockedItemsTool(), handleGetBlockedItems(recommender, logger))
	mcpServer.AddTool(createGetContextTool(), handleGetContext(itemService, logger))

	// SIGINT/SIGTERM cancel the listen context; in-flight handlers drain until
	// the shutdown timeout, then the deferred Close tears the database down.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("version", common.GetVersion()).Msg("Starting MCP server on stdio")

	stdioServer := server.NewStdioServer(mcpServer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- stdioServer.Listen(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("MCP server failed")
			return 1
		}
	case <-ctx.Done():
		timeout := time.Duration(config.Server.ShutdownTimeoutMS) * time.Millisecond
		logger.Info().Str("timeout", timeout.String()).Msg("Shutting down")
		select {
		case <-errCh:
		case <-time.After(timeout):
			logger.Warn().Msg("Shutdown timeout exceeded, exiting")
		}
	}

	logger.Info().Msg("Server stopped")
	return 0
}
