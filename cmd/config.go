package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configShowFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect trunk configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective merged configuration",
	RunE:  runConfigShow,
}

var configGenerateSchemaCmd = &cobra.Command{
	Use:   "generate-schema [path]",
	Short: "Emit the JSON schema for the configuration model",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGenerateSchema,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGenerateSchemaCmd)
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "toml", "output format (toml, json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch configShowFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "toml", "":
		enc := toml.NewEncoder(os.Stdout)
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unknown format %q, want toml or json", configShowFormat)
	}
}

func runConfigGenerateSchema(cmd *cobra.Command, args []string) error {
	schema, err := json.MarshalIndent(configSchema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling configuration schema: %w", err)
	}

	if len(args) == 0 {
		fmt.Println(string(schema))
		return nil
	}
	if err := os.WriteFile(args[0], schema, 0o644); err != nil {
		return fmt.Errorf("writing schema to %s: %w", args[0], err)
	}
	fmt.Printf("📄 wrote configuration schema to %s\n", args[0])
	return nil
}

// configSchema is a hand-authored JSON schema for Config, kept in sync with
// internal/config.Config by hand since its field set is small and stable;
// see spec.md §6's configuration table for the authoritative key list.
var configSchema = map[string]interface{}{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title":   "trunk configuration",
	"type":    "object",
	"properties": map[string]interface{}{
		"trunk-version": map[string]interface{}{"type": "string"},
		"build": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"target":          map[string]interface{}{"type": "string"},
				"html_output":     map[string]interface{}{"type": "string"},
				"release":         map[string]interface{}{"type": "boolean"},
				"dist":            map[string]interface{}{"type": "string"},
				"public_url":      map[string]interface{}{"type": "string"},
				"filehash":        map[string]interface{}{"type": "boolean"},
				"inject_scripts":  map[string]interface{}{"type": "boolean"},
				"offline":         map[string]interface{}{"type": "boolean"},
				"frozen":          map[string]interface{}{"type": "boolean"},
				"locked":          map[string]interface{}{"type": "boolean"},
				"minify":          map[string]interface{}{"type": "string", "enum": []string{"never", "on_release", "always"}},
				"no_sri":          map[string]interface{}{"type": "boolean"},
				"pattern_script":  map[string]interface{}{"type": "string"},
				"pattern_preload": map[string]interface{}{"type": "string"},
				"pattern_params":  map[string]interface{}{"type": "object"},
			},
		},
		"watch": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"watch":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"ignore": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			},
		},
		"serve": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"addresses":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"port":               map[string]interface{}{"type": "integer"},
				"aliases":            map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"open":               map[string]interface{}{"type": "boolean"},
				"no_spa":             map[string]interface{}{"type": "boolean"},
				"no_autoreload":      map[string]interface{}{"type": "boolean"},
				"no_error_reporting": map[string]interface{}{"type": "boolean"},
				"ws_protocol":        map[string]interface{}{"type": "string"},
				"headers":            map[string]interface{}{"type": "object"},
				"tls_key_path":       map[string]interface{}{"type": "string"},
				"tls_cert_path":      map[string]interface{}{"type": "string"},
			},
		},
		"clean": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"dist":  map[string]interface{}{"type": "string"},
				"cargo": map[string]interface{}{"type": "boolean"},
			},
		},
		"proxy": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"backend":         map[string]interface{}{"type": "string"},
					"ws":              map[string]interface{}{"type": "boolean"},
					"insecure":        map[string]interface{}{"type": "boolean"},
					"no_system_proxy": map[string]interface{}{"type": "boolean"},
					"rewrite":         map[string]interface{}{"type": "string"},
					"no_redirect":     map[string]interface{}{"type": "boolean"},
					"request_headers": map[string]interface{}{"type": "object"},
				},
			},
		},
		"hooks": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"stage":             map[string]interface{}{"type": "string", "enum": []string{"pre_build", "build", "post_build"}},
					"command":           map[string]interface{}{"type": "string"},
					"command_arguments": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"os":                map[string]interface{}{"type": "object"},
				},
			},
		},
	},
}
