package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var (
	cleanTools bool
	cleanCargo bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the publish directory",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanTools, "tools", false, "also clear the downloaded-tool cache")
	cleanCmd.Flags().BoolVar(&cleanCargo, "cargo", false, "also run `cargo clean`")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	distDir := cfg.Clean.Dist
	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("removing %s: %w", distDir, err)
	}
	fmt.Printf("🧹 removed %s\n", distDir)

	if cleanTools {
		cacheDir, err := toolsCacheDir()
		if err != nil {
			return err
		}
		if err := os.RemoveAll(cacheDir); err != nil {
			return fmt.Errorf("removing tool cache %s: %w", cacheDir, err)
		}
		fmt.Printf("🧹 removed tool cache %s\n", cacheDir)
	}

	if cleanCargo || cfg.Clean.Cargo {
		c := exec.CommandContext(cmd.Context(), "cargo", "clean")
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("cargo clean: %w", err)
		}
	}

	return nil
}
