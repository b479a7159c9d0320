package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/trunkgo/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect required external tools",
}

var toolsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print required tools and resolution status",
	RunE:  runToolsShow,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsShowCmd)
}

func runToolsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cacheDir, err := toolsCacheDir()
	if err != nil {
		return err
	}
	mgr := tools.New(cacheDir, cfg.Build.Offline, tools.NewHTTPGetter(2*time.Minute))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	for _, name := range []tools.Name{tools.Sass, tools.TailwindCSS, tools.WasmBindgen, tools.WasmOpt} {
		descriptor, probe, err := tools.DescriptorFor(name, "")
		if err != nil {
			fmt.Printf("  %-14s ✗ %v\n", name, err)
			continue
		}
		resolved, err := mgr.Resolve(ctx, descriptor, probe)
		if err != nil {
			fmt.Printf("  %-14s ✗ wanted %s: %v\n", name, descriptor.Version, err)
			continue
		}
		fmt.Printf("  %-14s ✓ %s (%s)\n", name, resolved.Version, resolved.Path)
	}

	return nil
}
