package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"detailinfra/internal/app"
	"detailinfra/internal/classification"
	"detailinfra/internal/config"
	"detailinfra/internal/logging"
)

type rootOptions struct {
	cfgFile string
	role    string
	user    string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	cmd := &cobra.Command{
		Use:   "detailctl",
		Short: "Administer vehicle classifications and detailing quotes",
		Long: `detailctl classifies vehicles, prices detailing jobs and manages the
classification table: bulk CSV import and export, queue sync and schema
migrations.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", os.Getenv("DETAIL_CONFIG"), "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.role, "role", classification.RoleAdmin, "role to act as")
	cmd.PersistentFlags().StringVar(&opts.user, "user", os.Getenv("USER"), "name recorded on writes")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	cmd.PersistentFlags().String("queue-path", "", "offline queue database (overrides config)")

	_ = opts.v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = opts.v.BindPFlag("queue_path", cmd.PersistentFlags().Lookup("queue-path"))

	cmd.AddCommand(classifyCmd(opts))
	cmd.AddCommand(estimateCmd(opts))
	cmd.AddCommand(importCmd(opts))
	cmd.AddCommand(exportCmd(opts))
	cmd.AddCommand(templateCmd())
	cmd.AddCommand(syncCmd(opts))
	cmd.AddCommand(pendingCmd(opts))
	cmd.AddCommand(migrateCmd(opts))
	cmd.AddCommand(watchCmd(opts))
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads configuration with the root flags layered on top.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadWith(o.v, o.cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// open builds the full service. Callers must Close the returned app.
func (o *rootOptions) open(ctx context.Context) (*app.App, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, log)
}

func (o *rootOptions) actor() classification.Actor {
	return classification.Actor{Name: o.user, Role: o.role}
}
