package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/devserver"
	"github.com/conneroisu/trunkgo/internal/logging"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/proxy"
	"github.com/conneroisu/trunkgo/internal/validation"
)

const serveShutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "watch, plus a dev server and autoreload",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 8080, "dev server port")
	_ = v.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printConfigFileUsed()

	logger, err := logging.New(logLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	proxyRoutes, err := buildProxyRoutes(cfg.Proxy)
	if err != nil {
		return err
	}

	srv := devserver.New(devserver.Config{
		DistDir:        cfg.Build.Dist,
		IndexName:      cfg.Build.HTMLOutput,
		Addresses:      cfg.Serve.Addresses,
		Port:           cfg.Serve.Port,
		Headers:        cfg.Serve.Headers,
		NoSPA:          cfg.Serve.NoSPA,
		NoAutoreload:   cfg.Serve.NoAutoreload,
		WSProtocol:     cfg.Serve.WSProtocol,
		AllowedOrigins: cfg.Serve.Aliases,
		TLSCertPath:    cfg.Serve.TLSCertPath,
		TLSKeyPath:     cfg.Serve.TLSKeyPath,
		ProxyRoutes:    proxyRoutes,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("http://%s:%d", firstOr(cfg.Serve.Addresses, "127.0.0.1"), portOr(cfg.Serve.Port, 8080))

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("🛠  serving at %s\n", addr)
		errCh <- srv.Start(ctx)
	}()

	if cfg.Serve.Open {
		go openBrowser(addr, logger)
	}

	watchErr := watchAndRebuild(ctx, cfg, logger, func(result pipeline.Result, buildErr error) {
		if buildErr != nil {
			if !cfg.Serve.NoErrorReporting {
				srv.BroadcastBuildFailure(buildErr.Error())
			}
			return
		}
		srv.BroadcastReload()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	startErr := <-errCh

	if watchErr != nil {
		return watchErr
	}
	return startErr
}

// openBrowser launches the platform's default browser at url, per
// spec.md §6's serve.open flag. Grounded on the teacher's
// internal/server.PreviewServer.openBrowser: per-OS exec.Command dispatch,
// gated on validation.ValidateURL since url is passed straight to a shell
// command.
func openBrowser(url string, logger *zap.SugaredLogger) {
	time.Sleep(100 * time.Millisecond)

	if err := validation.ValidateURL(url); err != nil {
		logger.Warnw("not opening browser: invalid URL", "url", url, "error", err)
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %q", runtime.GOOS)
	}
	if err != nil {
		logger.Warnw("failed to open browser", "error", err)
	}
}

func buildProxyRoutes(rules []config.ProxyConfig) (map[string]http.Handler, error) {
	routes := make(map[string]http.Handler, len(rules))
	for _, rule := range rules {
		mount, err := proxy.MountPath(rule)
		if err != nil {
			return nil, err
		}
		handler, err := proxy.NewHandler(rule)
		if err != nil {
			return nil, err
		}
		pattern := mount
		if len(pattern) == 0 || pattern[len(pattern)-1] != '/' {
			pattern += "/"
		}
		routes[pattern] = handler
	}
	return routes, nil
}

func firstOr(addrs []string, fallback string) string {
	if len(addrs) > 0 {
		return addrs[0]
	}
	return fallback
}

func portOr(port, fallback int) int {
	if port != 0 {
		return port
	}
	return fallback
}
