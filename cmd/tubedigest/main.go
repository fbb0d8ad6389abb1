// Command tubedigest aggregates recent videos from configured YouTube
// channels into a category-keyed digest, served over HTTP or refreshed
// from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tubedigest/internal/config"
	"tubedigest/internal/feed"
	"tubedigest/internal/kv"
	"tubedigest/internal/logging"
	"tubedigest/internal/metrics"
	"tubedigest/internal/prefs"
	"tubedigest/internal/server"
	"tubedigest/internal/snapshot"
	"tubedigest/internal/worker"
	"tubedigest/internal/youtube"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tubedigest",
		Short:         "YouTube channel digest aggregator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), refreshCmd(), prefsCmd(), cacheCmd(), backupCmd())
	return root
}

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	records kv.Store
}

// newApp loads configuration and opens the record store. Redis is used when
// REDIS_URL is set, the JSON file store otherwise.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel)

	var records kv.Store
	if cfg.RedisURL != "" {
		records, err = kv.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis record store: %w", err)
		}
		log.Info().Msg("using redis record store")
	} else {
		records, err = kv.NewFileStore(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open record store %s: %w", cfg.DataPath, err)
		}
		log.Info().Str("path", cfg.DataPath).Msg("using file record store")
	}

	return &app{cfg: cfg, log: log, records: records}, nil
}

func (a *app) close() {
	if err := a.records.Close(); err != nil {
		a.log.Error().Err(err).Msg("close record store")
	}
}

// pipeline builds the full aggregation stack on top of the record store.
func (a *app) pipeline(ctx context.Context) (*feed.Pipeline, *feed.Resolver, *prefs.Store, error) {
	client, err := youtube.NewClient(ctx, a.cfg.APIKey, a.cfg.UpstreamRPS, a.cfg.UpstreamTimeout)
	if err != nil {
		return nil, nil, nil, err
	}

	p := prefs.Open(ctx, a.records, a.log)
	resolver := feed.NewResolver(client, a.records, a.log)
	fetcher := feed.NewFetcher(client, a.records, a.cfg.FetchCacheTTL, a.log)
	pipeline := feed.NewPipeline(p, resolver, fetcher, feed.Options{
		StrictDateFilter: a.cfg.StrictDateFilter,
		FallbackDays:     a.cfg.FallbackDays,
		MaxResults:       a.cfg.MaxResults,
		Concurrency:      a.cfg.Concurrency,
	}, a.log)
	return pipeline, resolver, p, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, resolver, p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}

			metrics.Init()
			snap := snapshot.New(a.records, a.log)

			if a.cfg.RefreshInterval > 0 {
				refresher := worker.New(pipeline, snap, a.cfg.RefreshInterval, a.log)
				go refresher.Start(ctx)
			}

			srv := server.New(a.cfg, p, pipeline, resolver, snap, a.records, a.log)
			fiberApp := srv.App()

			go func() {
				<-ctx.Done()
				if err := fiberApp.Shutdown(); err != nil {
					a.log.Error().Err(err).Msg("shutdown")
				}
			}()

			a.log.Info().Str("port", a.cfg.Port).Msg("listening")
			return fiberApp.Listen(":" + a.cfg.Port)
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run one aggregation pass and write the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			pipeline, _, _, err := a.pipeline(ctx)
			if err != nil {
				return err
			}

			result, stats := pipeline.Run(ctx)
			snap := snapshot.New(a.records, a.log)
			if err := snap.Write(ctx, result, stats); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			cmd.Printf("Refreshed %d categories, %d videos (run %s)\n", stats.Categories, stats.Videos, stats.ID)
			return nil
		},
	}
}

func prefsCmd() *cobra.Command {
	prefsRoot := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and edit preferences",
	}

	prefsRoot.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print categories, channels and the lookback duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			p := prefs.Open(cmd.Context(), a.records, a.log)
			channels := p.Channels()
			for _, category := range p.Categories() {
				cmd.Printf("%s:\n", category)
				for _, name := range channels[category] {
					cmd.Printf("  %s\n", name)
				}
			}
			d := p.Duration()
			cmd.Printf("duration: %d days, %d months\n", d.Days, d.Months)
			return nil
		},
	})

	prefsRoot.AddCommand(&cobra.Command{
		Use:   "add-category <name>",
		Short: "Create an empty category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			p := prefs.Open(cmd.Context(), a.records, a.log)
			if !p.AddCategory(args[0]) {
				return fmt.Errorf("category %q already exists", args[0])
			}
			p.Save(cmd.Context())
			cmd.Printf("Added category %q\n", args[0])
			return nil
		},
	})

	prefsRoot.AddCommand(&cobra.Command{
		Use:   "add-channel <name> <category>",
		Short: "Add a channel to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			p := prefs.Open(cmd.Context(), a.records, a.log)
			if !p.AddChannel(args[0], args[1]) {
				return fmt.Errorf("channel %q is already configured", args[0])
			}
			p.Save(cmd.Context())
			cmd.Printf("Added channel %q to %q\n", args[0], args[1])
			return nil
		},
	})

	removeChannel := &cobra.Command{
		Use:   "remove-channel <name>",
		Short: "Remove a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			category, _ := cmd.Flags().GetString("category")
			p := prefs.Open(cmd.Context(), a.records, a.log)
			if !p.RemoveChannel(args[0], category) {
				return fmt.Errorf("channel %q not found", args[0])
			}
			p.Save(cmd.Context())
			cmd.Printf("Removed channel %q\n", args[0])
			return nil
		},
	}
	removeChannel.Flags().String("category", "", "only remove from this category")
	prefsRoot.AddCommand(removeChannel)

	prefsRoot.AddCommand(&cobra.Command{
		Use:   "set-duration <days> <months>",
		Short: "Set the lookback window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("days: %w", err)
			}
			months, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("months: %w", err)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			p := prefs.Open(cmd.Context(), a.records, a.log)
			if !p.SetDuration(cmd.Context(), days, months) {
				return fmt.Errorf("days and months must be non-negative")
			}
			cmd.Printf("Duration set to %d days, %d months\n", days, months)
			return nil
		},
	})

	return prefsRoot
}

func cacheCmd() *cobra.Command {
	cacheRoot := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached records",
	}

	cacheRoot.AddCommand(&cobra.Command{
		Use:   "evict <channel-name>",
		Short: "Drop a cached channel name → ID mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			client, err := youtube.NewClient(cmd.Context(), a.cfg.APIKey, a.cfg.UpstreamRPS, a.cfg.UpstreamTimeout)
			if err != nil {
				return err
			}
			resolver := feed.NewResolver(client, a.records, a.log)
			if !resolver.Evict(cmd.Context(), args[0]) {
				return fmt.Errorf("no cached mapping for %q", args[0])
			}
			cmd.Printf("Evicted %q\n", args[0])
			return nil
		},
	})

	return cacheRoot
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <path>",
		Short: "Write a backup of the record store to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.records.Backup(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			cmd.Printf("Backup written to %s\n", args[0])
			return nil
		},
	}
}
