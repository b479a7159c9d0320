// Package config provides configuration management for trunkgo using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports TOML/YAML/JSON files, environment
// variable overrides with the TRUNK_<SECTION>_<ITEM> prefix, and CLI flags,
// with precedence CLI > env > file > defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/trunkgo/internal/validation"
	"github.com/conneroisu/trunkgo/internal/version"
)

// Minify controls when HTML, CSS and JS minification runs; wasm-opt is
// governed separately by the build profile and data-wasm-opt.
type Minify string

const (
	MinifyNever     Minify = "never"
	MinifyOnRelease Minify = "on_release"
	MinifyAlways    Minify = "always"
)

// HookStage identifies when a Hook runs relative to the build.
type HookStage string

const (
	HookPreBuild  HookStage = "pre_build"
	HookBuild     HookStage = "build"
	HookPostBuild HookStage = "post_build"
)

// Config is the fully merged trunkgo configuration.
type Config struct {
	TrunkVersion string `mapstructure:"trunk-version" toml:"trunk-version" json:"trunk-version"`

	Build BuildConfig   `mapstructure:"build" toml:"build" json:"build"`
	Watch WatchConfig   `mapstructure:"watch" toml:"watch" json:"watch"`
	Serve ServeConfig   `mapstructure:"serve" toml:"serve" json:"serve"`
	Clean CleanConfig   `mapstructure:"clean" toml:"clean" json:"clean"`
	Proxy []ProxyConfig `mapstructure:"proxy" toml:"proxy" json:"proxy"`
	Hooks []HookConfig  `mapstructure:"hooks" toml:"hooks" json:"hooks"`
}

type BuildConfig struct {
	Target         string            `mapstructure:"target" toml:"target" json:"target"`
	HTMLOutput     string            `mapstructure:"html_output" toml:"html_output" json:"html_output"`
	Release        bool              `mapstructure:"release" toml:"release" json:"release"`
	Dist           string            `mapstructure:"dist" toml:"dist" json:"dist"`
	PublicURL      string            `mapstructure:"public_url" toml:"public_url" json:"public_url"`
	Filehash       bool              `mapstructure:"filehash" toml:"filehash" json:"filehash"`
	InjectScripts  bool              `mapstructure:"inject_scripts" toml:"inject_scripts" json:"inject_scripts"`
	Offline        bool              `mapstructure:"offline" toml:"offline" json:"offline"`
	Frozen         bool              `mapstructure:"frozen" toml:"frozen" json:"frozen"`
	Locked         bool              `mapstructure:"locked" toml:"locked" json:"locked"`
	Minify         Minify            `mapstructure:"minify" toml:"minify" json:"minify"`
	NoSRI          bool              `mapstructure:"no_sri" toml:"no_sri" json:"no_sri"`
	PatternScript  string            `mapstructure:"pattern_script" toml:"pattern_script" json:"pattern_script"`
	PatternPreload string            `mapstructure:"pattern_preload" toml:"pattern_preload" json:"pattern_preload"`
	PatternParams  map[string]string `mapstructure:"pattern_params" toml:"pattern_params" json:"pattern_params"`
}

type WatchConfig struct {
	Watch  []string `mapstructure:"watch" toml:"watch" json:"watch"`
	Ignore []string `mapstructure:"ignore" toml:"ignore" json:"ignore"`
}

type ServeConfig struct {
	Addresses        []string          `mapstructure:"addresses" toml:"addresses" json:"addresses"`
	Port             int               `mapstructure:"port" toml:"port" json:"port"`
	Aliases          []string          `mapstructure:"aliases" toml:"aliases" json:"aliases"`
	Open             bool              `mapstructure:"open" toml:"open" json:"open"`
	NoSPA            bool              `mapstructure:"no_spa" toml:"no_spa" json:"no_spa"`
	NoAutoreload     bool              `mapstructure:"no_autoreload" toml:"no_autoreload" json:"no_autoreload"`
	NoErrorReporting bool              `mapstructure:"no_error_reporting" toml:"no_error_reporting" json:"no_error_reporting"`
	WSProtocol       string            `mapstructure:"ws_protocol" toml:"ws_protocol" json:"ws_protocol"`
	Headers          map[string]string `mapstructure:"headers" toml:"headers" json:"headers"`
	TLSKeyPath       string            `mapstructure:"tls_key_path" toml:"tls_key_path" json:"tls_key_path"`
	TLSCertPath      string            `mapstructure:"tls_cert_path" toml:"tls_cert_path" json:"tls_cert_path"`
}

type CleanConfig struct {
	Dist  string `mapstructure:"dist" toml:"dist" json:"dist"`
	Cargo bool   `mapstructure:"cargo" toml:"cargo" json:"cargo"`
}

type ProxyConfig struct {
	Backend        string            `mapstructure:"backend" toml:"backend" json:"backend"`
	WS             bool              `mapstructure:"ws" toml:"ws" json:"ws"`
	Insecure       bool              `mapstructure:"insecure" toml:"insecure" json:"insecure"`
	NoSystemProxy  bool              `mapstructure:"no_system_proxy" toml:"no_system_proxy" json:"no_system_proxy"`
	Rewrite        string            `mapstructure:"rewrite" toml:"rewrite" json:"rewrite"`
	NoRedirect     bool              `mapstructure:"no_redirect" toml:"no_redirect" json:"no_redirect"`
	RequestHeaders map[string]string `mapstructure:"request_headers" toml:"request_headers" json:"request_headers"`
}

type HookConfig struct {
	Stage            HookStage         `mapstructure:"stage" toml:"stage" json:"stage"`
	Command          string            `mapstructure:"command" toml:"command" json:"command"`
	CommandArguments []string          `mapstructure:"command_arguments" toml:"command_arguments" json:"command_arguments"`
	PerOS            map[string]HookOS `mapstructure:"os" toml:"os" json:"os"`
}

// HookOS overrides Command/CommandArguments for one GOOS value.
type HookOS struct {
	Command          string   `mapstructure:"command" toml:"command" json:"command"`
	CommandArguments []string `mapstructure:"command_arguments" toml:"command_arguments" json:"command_arguments"`
}

// Load merges CLI flags (already bound into v), environment variables, and
// the config file located by v, applying defaults and validating the
// result. v is expected to have already had its config file set (or left to
// viper's search path) by the caller.
func Load(v *viper.Viper) (*Config, error) {
	applyDefaults(v)

	v.SetEnvPrefix("TRUNK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("trunk-version", "*")

	v.SetDefault("build.target", "index.html")
	v.SetDefault("build.html_output", "index.html")
	v.SetDefault("build.dist", "dist")
	v.SetDefault("build.public_url", "/")
	v.SetDefault("build.filehash", true)
	v.SetDefault("build.inject_scripts", true)
	v.SetDefault("build.minify", string(MinifyOnRelease))
	v.SetDefault("build.pattern_script", "")
	v.SetDefault("build.pattern_preload", "")

	v.SetDefault("watch.watch", []string{})
	v.SetDefault("watch.ignore", []string{})

	v.SetDefault("serve.addresses", []string{"127.0.0.1"})
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.ws_protocol", "")

	v.SetDefault("clean.dist", "dist")
}

// EnforceVersion checks the project's trunk-version requirement (if any)
// against the running binary, per spec.md's fatal-on-mismatch policy.
func EnforceVersion(cfg *Config) error {
	if cfg.TrunkVersion == "" {
		return nil
	}
	return version.Enforce(cfg.TrunkVersion)
}

// ValidatePaths runs the path/host validations that require the
// internal/validation package, kept separate from decode-time Validate so
// Validate has no import cycle risk with validation's own tests.
func ValidatePaths(cfg *Config) error {
	if err := validation.ValidateTargetPath(cfg.Build.Dist); err != nil {
		return fmt.Errorf("build.dist: %w", err)
	}
	for _, addr := range cfg.Serve.Addresses {
		if err := validation.ValidateArgument(addr); err != nil {
			return fmt.Errorf("serve.addresses: %w", err)
		}
	}
	return nil
}
