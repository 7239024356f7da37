package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	bgsmcp "github.com/ajitpratap0/bgs-goals/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  get_todo_list                generate a guild's to-do list
  add_goals                    set explicit goals on presences
  remove_goals                 clear explicit goals
  list_goals                   list a guild's explicit goals
  set_supported_minor_faction  choose the minor faction a guild supports
  stats                        fact store statistics

If the database cannot be opened the server still starts;
individual tool calls will return MCP error responses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var srv *bgsmcp.Server
			st, storeErr := newStore(cmd.Context(), logger)
			if storeErr != nil {
				logger.Error("mcp: failed to open store; tool calls will fail", "error", storeErr)
				srv = bgsmcp.NewServer(nil, logger)
			} else {
				defer func() { _ = st.Close() }()
				srv = bgsmcp.NewServer(newGuildService(st, nil, logger), logger)
			}

			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: bgs-goals MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
