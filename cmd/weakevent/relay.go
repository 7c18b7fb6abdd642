package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dylansturg/weakevent"
	httpadapter "github.com/dylansturg/weakevent/pkg/adapters/http"
	"github.com/dylansturg/weakevent/pkg/adapters/memory"
	redisadapter "github.com/dylansturg/weakevent/pkg/adapters/redis"
	"github.com/dylansturg/weakevent/pkg/domain"
	"github.com/dylansturg/weakevent/pkg/observability"
	"github.com/dylansturg/weakevent/pkg/roster"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the Redis backed notice relay",
	Long: `Subscribes to a Redis channel and fans incoming notices out to weakly
held subscribers. Subscribers are created over HTTP, live for the length
of their lease and vanish on their own once the roster lets go: the
garbage collector reclaims them and a periodic prune sweeps the inert
registrations they leave behind.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
			cfg.Relay.RedisAddress = addr
		}
		if channel, _ := cmd.Flags().GetString("channel"); channel != "" {
			cfg.Relay.Channel = channel
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Relay.Listen = listen
		}
		if exclusive, _ := cmd.Flags().GetBool("exclusive"); exclusive {
			cfg.Relay.Exclusive = true
		}

		logger, err := newLogger(cmd, cfg)
		if err != nil {
			fmt.Printf("Error configuring logging: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Relay.RedisAddress,
			Password: cfg.Relay.RedisPassword,
			DB:       cfg.Relay.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			fmt.Printf("Error reaching redis at %s: %v\n", cfg.Relay.RedisAddress, err)
			os.Exit(1)
		}

		// Hold the channel lease before consuming anything, so two
		// exclusive relays never deliver the same notice twice.
		leaseErrors := make(chan error, 1)
		if cfg.Relay.Exclusive {
			lease := redisadapter.NewLease(client, "weakevent:")
			logger.Info("waiting for channel lease", "channel", cfg.Relay.Channel)
			held, err := lease.Acquire(ctx, cfg.Relay.Channel, cfg.Relay.LeaseTTL)
			if err != nil {
				fmt.Printf("Error acquiring channel lease: %v\n", err)
				os.Exit(1)
			}
			go func() { leaseErrors <- held.Keep(ctx) }()
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		collector := observability.New(reg)

		source := redisadapter.NewSource[domain.Notice](client, cfg.Relay.Channel,
			redisadapter.WithLogger[domain.Notice](logger),
			redisadapter.WithRecorder[domain.Notice](collector),
		)
		observability.ObserveEvent(collector, "notices", source.Event())

		// The history is infrastructure, not a managed subscriber: it
		// lives as long as the relay, so it attaches strongly.
		history := memory.NewHistory(cfg.Relay.History)
		source.Event().Attach(history.OnNotice)

		registry := &demoRegistry{
			roster:     roster.NewManager(roster.WithLogger[noticeSink](logger)),
			event:      source.Event(),
			logger:     logger,
			opts:       collector.Options(),
			defaultTTL: cfg.Relay.SubscriberTTL,
		}

		handler := httpadapter.NewHandler(&httpadapter.Server{
			Publisher: source,
			Registrar: registry,
			History:   history,
			Event:     source.Event(),
			Gatherer:  reg,
			Version:   weakevent.Version,
			Logger:    logger,
		})

		srv := &http.Server{
			Addr:    cfg.Relay.Listen,
			Handler: handler,
		}

		// Channel to listen for errors coming from the feed.
		feedErrors := make(chan error, 1)
		go func() { feedErrors <- source.Run(ctx) }()

		// Janitors: expire subscriber leases, sweep inert handlers.
		go registry.roster.Run(ctx, cfg.Relay.SweepEvery)
		go func() {
			ticker := time.NewTicker(cfg.Relay.PruneEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := source.Event().Prune(); n > 0 {
						logger.Info("pruned inert handlers", "count", n)
					}
				}
			}
		}()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("relay listening",
				"addr", srv.Addr,
				"channel", cfg.Relay.Channel,
				"exclusive", cfg.Relay.Exclusive)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case err := <-feedErrors:
			fmt.Printf("Feed error: %v\n", err)
			os.Exit(1)

		case err := <-leaseErrors:
			fmt.Printf("Lease error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Stop the feed and janitors first, then drain the listener.
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("failed to close server", "err", err)
				}
			}
			logger.Info("relay stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().String("redis", "", "Redis address (overrides the config file)")
	relayCmd.Flags().String("channel", "", "Channel to relay (overrides the config file)")
	relayCmd.Flags().StringP("listen", "l", "", "HTTP listen address (overrides the config file)")
	relayCmd.Flags().Bool("exclusive", false, "Hold the channel lease so only one relay consumes it")
}
