// Package internal contains the core implementation packages for trunkgo.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all of the trunk CLI tool's functionality.
//
// # Package Organization
//
//   - config: configuration loading (TOML/YAML/JSON/env/flags) and validation
//   - errors: structured build error taxonomy and the dev-server overlay
//   - rewriter: entry-HTML parsing, directive extraction, and patch application
//   - pipeline: the per-build engine that schedules and finalizes asset tasks
//   - pipelines/*: one package per asset kind (rustapp, sass, tailwind, css,
//     icon, inline, copyfile, copydir, script)
//   - tools: external tool resolution, download, cache, and single-flight
//   - stage: atomic staging-directory to dist-directory promotion
//   - watcher: file system monitoring with debouncing and ignore rules
//   - devserver: static file serving, SPA fallback, and autoreload broadcast
//   - proxy: reverse HTTP/WebSocket proxying for serve.proxy entries
//   - hooks: pre_build/build/post_build subprocess hook execution
//   - validation: shared input validation (paths, arguments, origins, URLs)
//   - version: the trunkgo binary's own version and trunk-version enforcement
//
// # Design Principles
//
//   - Security by default: path and argument validation at every subprocess
//     and file boundary
//   - Concurrent safety: errgroup-based fan-out with explicit cancellation
//   - Testability: unit tests alongside every package, with property tests
//     for quantified invariants
//   - Observability: structured logging via zap, consistent across packages
//
// # Build Flow
//
// The pipeline package is the central coordinator: it reads the rewriter's
// parsed directives, fans asset tasks out through an errgroup, waits for
// hooks and tasks to finish, and hands the result to stage for an atomic
// dist-directory swap. The watcher and devserver packages sit above it for
// `watch`/`serve`, re-triggering builds and broadcasting completion over
// WebSocket respectively.
package internal
