package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"detailinfra/internal/db"
	"detailinfra/internal/events"
)

func syncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued classifications to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d synced, %d still queued\n", res.Succeeded, res.Remaining)
			return nil
		},
	}
}

func pendingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List classifications waiting in the local queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Service.Pending(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMAKE\tMODEL\tCATEGORY\tLUXURY\tQUEUED")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
					it.ID, it.Make, it.Model, it.Category, it.Luxury, it.QueuedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply classification table migrations",
		Long: `Create or update the remote classification schema. Requires
DATABASE_URL (or database_url in the config file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			v, err := db.Migrate(ctx, pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("migrations applied")
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (latest %d)\n", v, db.LatestVersion())
			return nil
		},
	}
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream classification events from NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return errors.New("nats_url not set")
			}
			nc, err := events.Connect(cfg.NATSURL, cfg.ServiceName+"-watch")
			if err != nil {
				return err
			}
			defer nc.Close()

			out := cmd.OutOrStdout()
			sub, err := events.Subscribe(nc.Conn(), subject, func(_ context.Context, m events.Message) {
				fmt.Fprintf(out, "%s %s\n", m.Subject, m.Data)
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Unsubscribe() }()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", events.SubjectAll, "subject to subscribe to")
	return cmd
}
