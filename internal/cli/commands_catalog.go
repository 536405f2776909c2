package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	reload  bool
	loaders bool
)

// versionsCmd lists the versions a family can install
var versionsCmd = &cobra.Command{
	Use:   "versions <family>",
	Short: "List installable versions of a server family",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a := cmd.Context(), App(cmd)
		family := args[0]

		if reload {
			ok, err := a.Installs.Reload(ctx, family)
			if err != nil {
				return err
			}
			if !ok {
				a.Terminal.Warning("Catalog reload failed, upstream is unavailable")
			}
		}

		var (
			list []string
			err  error
			what = "versions"
		)
		if loaders {
			list, err = a.Installs.LoaderVersions(ctx, family)
			what = "loader versions"
		} else {
			list, err = a.Installs.Versions(ctx, family)
		}
		if err != nil {
			return err
		}
		if len(list) == 0 {
			a.Terminal.Warning(fmt.Sprintf("No %s available for %s (catalog unavailable?)", what, family))
			return nil
		}

		a.Terminal.Section(fmt.Sprintf("%s %s (%d)", family, what, len(list)))
		a.Terminal.Columns(list, terminalWidth())
		return nil
	},
}

// buildsCmd lists the builds published for one version
var buildsCmd = &cobra.Command{
	Use:   "builds <family> <version>",
	Short: "List builds of a version (paper, forge, neoforge)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a := cmd.Context(), App(cmd)
		builds, err := a.Installs.Builds(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if len(builds) == 0 {
			a.Terminal.Warning(fmt.Sprintf("No builds found for %s %s", args[0], args[1]))
			return nil
		}

		rows := make([][]string, len(builds))
		for i, b := range builds {
			rows[i] = []string{b.BuildID, b.RawTag}
		}
		a.Terminal.Section(fmt.Sprintf("%s %s builds (newest first)", args[0], args[1]))
		a.Terminal.Table([]string{"Build", "Artifact version"}, rows)
		return nil
	},
}

func terminalWidth() int {
	if w, _, err := term.GetSize(0); err == nil && w > 0 {
		return w
	}
	return 80
}
