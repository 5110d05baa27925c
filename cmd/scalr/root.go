package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/scalr/internal/config"
	"github.com/hejijunhao/scalr/internal/logging"
	"github.com/hejijunhao/scalr/pkg/scalr"
)

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string
	output     string
	cfg        config.Config

	// appended to the client options built from cfg
	clientOpts []scalr.Option
}

func newRootCmd() *cobra.Command {
	return buildRoot(&cli{})
}

func buildRoot(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "scalr",
		Short:         "Call the Scalr API and diagnose failed server launches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", os.Getenv("SCALR_CONFIG"), "config file (.yaml, .yml or .toml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.output, "output", "", "report destination: stdout, file, webhook")

	root.AddCommand(
		newActionsCmd(),
		newCallCmd(c),
		newFailuresCmd(c),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.output != "" {
		cfg.Output.Format = c.output
	}
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}
	c.cfg = cfg

	jsonLogs := cfg.Output.Format == "stdout"
	logging.Init(cmd.ErrOrStderr(), jsonLogs, logging.ParseLevel(cfg.LogLevel))
	return nil
}

// client builds an API client from the loaded configuration.
func (c *cli) client(cmd *cobra.Command) (*scalr.Client, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	api := c.cfg.API
	opts := []scalr.Option{
		scalr.WithEndpoint(api.Endpoint),
		scalr.WithCredentials(api.KeyID, api.AccessKey),
		scalr.WithVersion(api.Version),
		scalr.WithTimeout(api.Timeout),
		scalr.WithRateLimit(api.RateLimit),
	}
	if api.Debug {
		opts = append(opts, scalr.WithDebug(cmd.ErrOrStderr()))
	}
	opts = append(opts, c.clientOpts...)
	cl, err := scalr.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return cl, nil
}
