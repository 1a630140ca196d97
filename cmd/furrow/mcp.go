package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/furrow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the supervisor as an MCP server with an "ask" tool, a "health"
tool and a furrow://workers resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if addr == "" {
			addr = a.cfg.Server.MCPAddr
		}

		srv := mcp.NewServer(a.supervisor, a.logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			if err := a.supervisor.Run(ctx); err != nil {
				a.logger.Error("background maintenance stopped", "err", err)
			}
		}()

		switch transport {
		case "stdio":
			// Keep stdout clean for JSON-RPC.
			log.SetOutput(os.Stderr)
			a.logger.Info("starting furrow MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			base, _ := cmd.Flags().GetString("base-url")
			if base == "" {
				base = "http://localhost" + addr
			}
			if err := srv.ServeSSE(ctx, addr, base); err != nil {
				return err
			}
			a.logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "", "Address to listen on, SSE only (default from config, :8081)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients")
}
