package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"craftinstall/internal/app"
	"craftinstall/internal/config"
)

var (
	cfgFile string
	debug   bool

	// Version is set by ldflags during build
	Version = "dev"
)

// AppKey is the context key for the application container
type AppKey struct{}

// rootCmd defines the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "craftinstall",
	Short: "Install and run Minecraft servers of every major distribution",
	Long: `craftinstall installs Minecraft servers from their upstream sources.

Features:
  - Version catalogs for Vanilla, Paper, Spigot, CraftBukkit, Forge, NeoForge,
    Fabric, Quilt, Bedrock and PowerNukkit
  - Checksum-verified downloads with atomic placement
  - Forge installers and Spigot BuildTools driven with live progress
  - Discord notifications
  - Health checks`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if a := App(cmd); a != nil {
			a.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the version reported by --version
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

// ExecuteContext runs the root command with ctx as the parent of every
// command context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("craftinstall v{{.Version}}\n")
	rootCmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Help() }
}

// initApp handles configuration loading and dependency injection for all commands
func initApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if debug {
		cfg.Debug = true
		cfg.Logging.Level = "DEBUG"
	}

	application := app.New(cfg)
	// Inject the application container into the command context to avoid global state "lock-in"
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, AppKey{}, application))
	return nil
}

// App extracts the application container from the command context
func App(cmd *cobra.Command) *app.App {
	if cmd.Context() == nil {
		return nil
	}
	if a, ok := cmd.Context().Value(AppKey{}).(*app.App); ok {
		return a
	}
	return nil
}
