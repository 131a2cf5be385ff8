package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"repldoc/internal/version"
)

// addVersionCommand adds the version command
func (app *App) addVersionCommand(rootCmd *cobra.Command) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the version of repldoc with build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := version.ValidateVersion(); err != nil {
				return err
			}
			detailed, _ := cmd.Flags().GetBool("detailed")
			if detailed {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
			}
			return nil
		},
	}

	versionCmd.Flags().Bool("detailed", false, "Show detailed version information")
	rootCmd.AddCommand(versionCmd)
}
