package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"craftinstall/internal/domain"
	"craftinstall/internal/service"
	"craftinstall/internal/ui"
)

var (
	installDir    string
	installBuild  string
	installLoader string
	onMismatch    string
)

// installCmd installs a server and follows the task until it ends
var installCmd = &cobra.Command{
	Use:   "install <family> <version>",
	Short: "Install a server",
	Long: `Install a server of the given family and version into a directory.

An existing server directory of the same family is upgraded in place. Ctrl-C
cancels the install and leaves the previous installation untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := App(cmd)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		title := fmt.Sprintf("%s %s", args[0], args[1])
		progress := ui.NewInstallProgress(a.Terminal, title)
		inst, t, err := a.Installs.Install(ctx, service.InstallOptions{
			Family:         args[0],
			Version:        args[1],
			Build:          installBuild,
			LoaderVersion:  installLoader,
			Dir:            installDir,
			OnHashMismatch: onMismatch,
			Observer:       progress.Observe,
		})
		if err != nil {
			a.Terminal.Error(fmt.Sprintf("Cannot install %s: %v", title, err))
			return err
		}

		a.Terminal.Info(fmt.Sprintf("Installing %s into %s", title, inst.Dir()))
		<-t.Done()

		switch err := t.Err(); {
		case err == nil:
			a.Terminal.Success(fmt.Sprintf("Installed %s", title))
			return nil
		case errors.Is(err, domain.ErrCancelled):
			a.Terminal.Warning("Install cancelled, the server directory was left unchanged")
			return err
		default:
			a.Terminal.Error(fmt.Sprintf("Install failed: %v", err))
			return err
		}
	},
}
