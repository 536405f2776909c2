// Package cli provides the command-line interface for craftinstall
package cli

// init registers all commands and their flags
func init() {
	rootCmd.AddCommand(versionsCmd, buildsCmd, installCmd, serverCmd, healthCheckCmd, initCmd)
	serverCmd.AddCommand(serverInfoCmd, serverRunCmd)

	versionsCmd.Flags().BoolVar(&reload, "reload", false, "discard the cached catalog first")
	versionsCmd.Flags().BoolVar(&loaders, "loaders", false, "list mod loader versions (fabric, quilt)")

	installCmd.Flags().StringVarP(&installDir, "dir", "d", "", "server directory (default <paths.servers>/<family>-<version>)")
	installCmd.Flags().StringVar(&installBuild, "build", "", "build to install (default newest)")
	installCmd.Flags().StringVar(&installLoader, "loader", "", "loader version to install (default newest stable)")
	installCmd.Flags().StringVar(&onMismatch, "on-mismatch", "", "checksum mismatch policy: retry, ignore or abort")

	initCmd.Flags().StringVarP(&outputPath, "output", "o", "", "config path")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite")
}
