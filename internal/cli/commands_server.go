package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serverCmd groups commands on installed server directories
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Installed server management",
}

// serverInfoCmd shows what is installed in a directory
var serverInfoCmd = &cobra.Command{
	Use:   "info <dir>",
	Short: "Show the installed software of a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := App(cmd)
		info, err := a.Server.Info(args[0])
		if err != nil {
			a.Terminal.Error(fmt.Sprintf("Failed to read server: %v", err))
			return err
		}

		orDash := func(s string) string {
			if s == "" {
				return "-"
			}
			return s
		}
		launch := info.Launch
		if info.LaunchErr != nil {
			launch = a.Terminal.WarningSprint(info.LaunchErr.Error())
		}

		a.Terminal.Section("Server " + info.Dir)
		a.Terminal.KeyValues([][2]string{
			{"Software", string(info.Family)},
			{"Version", orDash(info.Version)},
			{"Build", orDash(info.Build)},
			{"Loader version", orDash(info.LoaderVersion)},
			{"Java", info.JavaPath},
			{"Launch", launch},
		})
		return nil
	},
}

// serverRunCmd runs a server in the foreground with its console attached
var serverRunCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Run an installed server in the foreground",
	Long: `Run an installed server with its console attached. Lines typed on stdin
are sent as server commands; Ctrl-C stops the server gracefully.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := App(cmd)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.Terminal.Info("Starting server...")
		err := a.Server.Run(ctx, args[0], os.Stdin, func(line string) { a.Terminal.Println(line) })
		if err != nil {
			a.Terminal.Error(fmt.Sprintf("Server failed: %v", err))
			return err
		}
		a.Terminal.Success("Server has been stopped")
		return nil
	},
}
