package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/eventform/internal/config"
	"github.com/example/eventform/internal/logging"
)

type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "eventform",
		Short:         "Event registration forms with spreadsheet import and CSV export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./eventform.yaml)")

	cmd.AddCommand(
		newServeCommand(opts),
		newIngestCommand(opts),
		newExportCommand(opts),
		newKeysCommand(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile)
	}
	return config.Load()
}

// withApp loads the configuration, opens the application and runs fn. Logs
// go to stderr so command output stays clean.
func (o *rootOptions) withApp(ctx context.Context, logOut io.Writer, fn func(a *app) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	logger := logging.New(logOut, cfg.LogLevel)
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
