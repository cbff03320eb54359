package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lox/search-relevance/internal/commands"
	"github.com/lox/search-relevance/internal/mcp"
)

type CLI struct {
	commands.CommonConfig
	commands.RegistryConfig
}

func (c *CLI) Run() error {
	ctx := context.Background()

	logger, err := commands.SetupLogger(c.CommonConfig)
	if err != nil {
		return err
	}

	database, err := commands.SetupDatabase(c.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	registry, err := commands.SetupRegistry(ctx, c.RegistryConfig, database, logger)
	if err != nil {
		return err
	}

	return mcp.New(registry, database, logger).Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("relevance-mcp-server"),
		kong.Description("Serve container relevance configurations over MCP stdio"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
