package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/trunkgo/internal/version"
)

var versionDetailed bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the trunk binary's version",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "print full build information")
}

func runVersion(cmd *cobra.Command, args []string) error {
	if versionDetailed {
		fmt.Println(version.GetDetailedVersion())
		return nil
	}
	fmt.Println(version.GetShortVersion())
	return nil
}
