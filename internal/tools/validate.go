package tools

import (
	"fmt"
	"strings"

	"github.com/conneroisu/trunkgo/internal/validation"
)

// allowedCommands is the fixed set of binaries trunkgo ever shells out to.
// Anything else is refused regardless of how it got constructed.
var allowedCommands = map[string]bool{
	"cargo":       true,
	"wasm-bindgen": true,
	"wasm-opt":    true,
	"sass":        true,
	"tailwindcss": true,
}

// validateCommand checks name against allowedCommands, delegating the
// shared shell-metacharacter check to validation.ValidateCommand. The
// resolved binary path is a trusted, internally-constructed value (cache
// dir or PATH lookup), so only the logical tool name is checked here.
func validateCommand(name string) error {
	return validation.ValidateCommand(name, allowedCommands)
}

// validateArgs rejects shell metacharacters in each argument. Unlike
// validation.ValidateArgument, it does not reject absolute paths: tool
// invocations legitimately pass absolute source/staging-directory paths
// that never pass through a shell, so only injection-relevant characters
// are checked here.
func validateArgs(args []string) error {
	dangerous := []string{";", "&", "|", "$", "`", "\n"}
	for _, arg := range args {
		for _, ch := range dangerous {
			if strings.Contains(arg, ch) {
				return fmt.Errorf("invalid argument %q: contains dangerous character %q", arg, ch)
			}
		}
	}
	return nil
}
