package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	mcpadapter "github.com/dylansturg/weakevent/pkg/adapters/mcp"
	"github.com/dylansturg/weakevent/pkg/adapters/memory"
	redisadapter "github.com/dylansturg/weakevent/pkg/adapters/redis"
	"github.com/dylansturg/weakevent/pkg/domain"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Bridges the notice feed to MCP so AI agents can publish notices and
read back what recently went over the channel.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
			cfg.Relay.RedisAddress = addr
		}
		if channel, _ := cmd.Flags().GetString("channel"); channel != "" {
			cfg.Relay.Channel = channel
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Stdout carries JSON-RPC, so everything else goes to stderr.
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Relay.RedisAddress,
			Password: cfg.Relay.RedisPassword,
			DB:       cfg.Relay.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reaching redis at %s: %v\n", cfg.Relay.RedisAddress, err)
			os.Exit(1)
		}

		source := redisadapter.NewSource[domain.Notice](client, cfg.Relay.Channel,
			redisadapter.WithLogger[domain.Notice](logger),
		)
		history := memory.NewHistory(cfg.Relay.History)
		source.Event().Attach(history.OnNotice)

		// A dead feed only stops recent_notices from growing; publishing
		// still works, so the server stays up and the failure is logged.
		go func() {
			if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("feed stopped", "err", err)
			}
		}()

		srv := mcpadapter.NewServer(source, history, cfg.Relay.Channel)

		switch transport {
		case "stdio":
			logger.Info("mcp server listening on stdio", "channel", cfg.Relay.Channel)
			if err := srv.ServeStdio(); err != nil {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("mcp server listening", "port", port, "channel", cfg.Relay.Channel)
			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
			logger.Info("mcp server stopped")
		default:
			fmt.Fprintf(os.Stderr, "Unknown transport: %s. Supported: stdio, sse\n", transport)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("redis", "", "Redis address (overrides the config file)")
	mcpCmd.Flags().String("channel", "", "Channel to bridge (overrides the config file)")
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8090, "Port to listen on (only for SSE)")
}
