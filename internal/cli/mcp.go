package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/limbguide/internal/core"
	lgmcp "github.com/valter-silva-au/limbguide/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the limbguide MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the limbguide MCP server on stdio",
	Long: `Start the limbguide MCP server on stdio transport.

The server exposes the topic tree and usage metrics as MCP tools that AI
assistants can call: find_topic, get_outline, get_topic_content,
query_topics, get_metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TreeStore == nil {
			return fmt.Errorf("topic tree store not initialized")
		}

		depth := core.DefaultOutlineDepth
		if Config != nil {
			depth = Config.Tree.OutlineDepth
		}
		srv := lgmcp.NewServer(TreeStore, MetricsCalc, depth, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
