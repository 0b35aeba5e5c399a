package cli

import (
	"github.com/jlrickert/sitedoc/pkg/api"
	"github.com/jlrickert/sitedoc/pkg/mcptools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// NewServeCmd returns the `serve` cobra command.
func NewServeCmd(deps *Deps) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the content admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = deps.Config.HTTP.Addr
			}
			srv := api.New(st, api.Options{
				Logger:         deps.Logger,
				RequestTimeout: deps.Config.HTTP.RequestTimeout,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// NewMCPCmd returns the `mcp` cobra command. It speaks MCP over stdio.
func NewMCPCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "run an MCP server over stdio exposing the content tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			srv := mcptools.New(st, deps.Logger).NewServer("sitedoc", Version)
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
