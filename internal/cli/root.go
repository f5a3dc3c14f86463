package cli

import (
	"github.com/spf13/cobra"

	"github.com/digitalbackpack/subtrack/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	DataDir    string
}

// loadConfig resolves the effective configuration for a command run.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	return cfg, nil
}

// NewRootCommand creates the root command for the subtrack CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "subtrack",
		Short: "subtrack - personal subscription tracker",
		Long: "Track recurring subscriptions with encrypted credentials and\n" +
			"get local reminders before they expire.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "subtrack.yaml", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "override the configured data directory")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewAgentCommand(opts))
	cmd.AddCommand(NewWipeKeysCommand(opts))

	return cmd
}

// withApp opens the application for a command body and closes it afterwards.
func withApp(opts *RootOptions, fn func(app *App) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	app, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
