package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stockwatch/internal/config"
	"stockwatch/internal/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "stockwatch",
		Short:         "Real-time A-share and HK quote monitor",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default: per-user config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory for the database and logs")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newQuoteCmd(opts))
	root.AddCommand(newInitConfigCmd(opts))
	return root
}

// loadConfig reads the config file and environment, then applies the
// persistent flags on top.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		if _, ok := logging.ParseLevel(o.logLevel); !ok {
			return config.Config{}, fmt.Errorf("invalid log level %q", o.logLevel)
		}
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func newInitConfigCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			cfg.DataDir = opts.dataDir
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
