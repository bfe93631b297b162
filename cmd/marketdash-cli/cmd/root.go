// Package cmd implements the marketdash-cli commands.
package cmd

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"marketdash/internal/app"
	"marketdash/internal/config"
	"marketdash/internal/gateway"
	"marketdash/internal/util"
)

// options holds the state shared by every command of one invocation.
type options struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "marketdash-cli",
		Short: "Market dashboard command line",
		Long: `Market dashboard command line

Gateway commands (quote, news, search, profile, detail) call the configured
market data provider directly. snapshot talks to a running marketdash-server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (YAML); environment variables override it")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newQuoteCmd(o),
		newNewsCmd(o),
		newSearchCmd(o),
		newProfileCmd(o),
		newDetailCmd(o),
		newSnapshotCmd(o),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (o *options) init(cmd *cobra.Command) error {
	// .env is optional; the environment may already carry the settings.
	_ = godotenv.Load()

	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = util.NewWriterLogger(cmd.ErrOrStderr(), o.logLevel, "text")
	util.SetDefault(o.logger)
	return nil
}

// gateway builds the configured provider after validating its credentials.
func (o *options) gateway() (gateway.Gateway, app.Closer, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return app.NewGateway(o.cfg, o.logger)
}
