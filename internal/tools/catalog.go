package tools

import (
	"fmt"
	"runtime"
	"strings"
)

// platformTriple maps Go's GOOS/GOARCH onto the (os, arch) vocabulary
// original_source/src/tools.rs's Application::url uses for its release
// asset naming.
func platformTriple() (os, arch string, err error) {
	switch runtime.GOOS {
	case "windows":
		os = "windows"
	case "darwin":
		os = "macos"
	case "linux":
		os = "linux"
	default:
		return "", "", fmt.Errorf("unsupported OS %q", runtime.GOOS)
	}
	switch runtime.GOARCH {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	default:
		return "", "", fmt.Errorf("unsupported architecture %q", runtime.GOARCH)
	}
	return os, arch, nil
}

// DefaultVersion is the version trunkgo requests when a project's config
// doesn't pin one, mirroring original_source's Application::default_version.
func DefaultVersion(name Name) string {
	switch name {
	case Sass:
		return "1.69.5"
	case TailwindCSS:
		return "3.3.5"
	case WasmBindgen:
		return "0.2.89"
	case WasmOpt:
		return "version_116"
	default:
		return ""
	}
}

// DescriptorFor builds the Descriptor and VersionProbe for name@version,
// selecting the release archive URL for the running OS/architecture.
// Grounded on original_source/src/tools.rs's Application::url and
// Application::format_version_output tables.
func DescriptorFor(name Name, version string) (Descriptor, VersionProbe, error) {
	if version == "" {
		version = DefaultVersion(name)
	}
	os, arch, err := platformTriple()
	if err != nil {
		return Descriptor{}, nil, err
	}

	url, err := downloadURL(name, version, os, arch)
	if err != nil {
		return Descriptor{}, nil, err
	}

	return Descriptor{
		Name:        name,
		Version:     version,
		Platform:    os + "-" + arch,
		URLTemplate: url,
	}, probeFor(name), nil
}

func downloadURL(name Name, version, os, arch string) (string, error) {
	switch name {
	case Sass:
		switch {
		case os == "windows" && arch == "x86_64":
			return fmt.Sprintf("https://github.com/sass/dart-sass/releases/download/%s/dart-sass-%s-windows-x64.zip", version, version), nil
		case (os == "macos" || os == "linux") && arch == "x86_64":
			return fmt.Sprintf("https://github.com/sass/dart-sass/releases/download/%s/dart-sass-%s-%s-x64.tar.gz", version, version, os), nil
		case (os == "macos" || os == "linux") && arch == "aarch64":
			return fmt.Sprintf("https://github.com/sass/dart-sass/releases/download/%s/dart-sass-%s-%s-arm64.tar.gz", version, version, os), nil
		}
	case TailwindCSS:
		switch {
		case os == "windows" && arch == "x86_64":
			return fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/v%s/tailwindcss-windows-x64.exe", version), nil
		case (os == "macos" || os == "linux") && arch == "x86_64":
			return fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/v%s/tailwindcss-%s-x64", version, os), nil
		case (os == "macos" || os == "linux") && arch == "aarch64":
			return fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/v%s/tailwindcss-%s-arm64", version, os), nil
		}
	case WasmBindgen:
		switch {
		case os == "windows" && arch == "x86_64":
			return fmt.Sprintf("https://github.com/rustwasm/wasm-bindgen/releases/download/%s/wasm-bindgen-%s-x86_64-pc-windows-msvc.tar.gz", version, version), nil
		case os == "macos" && arch == "x86_64":
			return fmt.Sprintf("https://github.com/rustwasm/wasm-bindgen/releases/download/%s/wasm-bindgen-%s-x86_64-apple-darwin.tar.gz", version, version), nil
		case os == "macos" && arch == "aarch64":
			return fmt.Sprintf("https://github.com/rustwasm/wasm-bindgen/releases/download/%s/wasm-bindgen-%s-aarch64-apple-darwin.tar.gz", version, version), nil
		case os == "linux" && arch == "x86_64":
			return fmt.Sprintf("https://github.com/rustwasm/wasm-bindgen/releases/download/%s/wasm-bindgen-%s-x86_64-unknown-linux-musl.tar.gz", version, version), nil
		case os == "linux" && arch == "aarch64":
			return fmt.Sprintf("https://github.com/rustwasm/wasm-bindgen/releases/download/%s/wasm-bindgen-%s-aarch64-unknown-linux-gnu.tar.gz", version, version), nil
		}
	case WasmOpt:
		if os == "macos" && arch == "aarch64" {
			return fmt.Sprintf("https://github.com/WebAssembly/binaryen/releases/download/%s/binaryen-%s-arm64-macos.tar.gz", version, version), nil
		}
		return fmt.Sprintf("https://github.com/WebAssembly/binaryen/releases/download/%s/binaryen-%s-%s-%s.tar.gz", version, version, arch, os), nil
	}
	return "", fmt.Errorf("unable to resolve a download URL for %s on %s/%s", name, os, arch)
}

// probeFor returns the VersionProbe for name, mirroring
// Application::format_version_output's per-tool output parsing. Since
// Manager.fromPATH always probes with a fixed "--version" invocation
// (trunkgo has no per-tool version_test override), tailwindcss's probe
// parses --version output directly rather than original_source's
// --help-banner parsing.
func probeFor(name Name) VersionProbe {
	switch name {
	case Sass:
		return func(output string) (string, bool) {
			fields := strings.Fields(output)
			if len(fields) == 0 {
				return "", false
			}
			return fields[0], true
		}
	case TailwindCSS:
		return func(output string) (string, bool) {
			for _, line := range strings.Split(output, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if idx := strings.Index(line, " v"); idx != -1 {
					return line[idx+2:], true
				}
				return strings.TrimPrefix(line, "v"), true
			}
			return "", false
		}
	case WasmBindgen:
		return func(output string) (string, bool) {
			fields := strings.Fields(output)
			if len(fields) < 2 {
				return "", false
			}
			return fields[1], true
		}
	case WasmOpt:
		return func(output string) (string, bool) {
			fields := strings.Fields(output)
			if len(fields) < 3 {
				return "", false
			}
			return "version_" + fields[2], true
		}
	default:
		return nil
	}
}
