package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/mhe-storefront/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := buildService(nil, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MHE Storefront MCP server on stdio...")

	if err := mcpserver.Serve(svc); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
