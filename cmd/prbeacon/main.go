package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	blink1adapter "github.com/ericfisherdev/prbeacon/internal/adapter/driven/blink1"
	githubadapter "github.com/ericfisherdev/prbeacon/internal/adapter/driven/github"
	"github.com/ericfisherdev/prbeacon/internal/adapter/driven/memory"
	"github.com/ericfisherdev/prbeacon/internal/application"
	"github.com/ericfisherdev/prbeacon/internal/config"
	"github.com/ericfisherdev/prbeacon/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Flags. Each overrides its environment counterpart.
	var (
		usernameFlag = flag.String("username", "", "GitHub username to monitor (default: PRBEACON_GITHUB_USERNAME or the token's user)")
		intervalFlag = flag.Duration("interval", 0, "poll interval (default: PRBEACON_POLL_INTERVAL or 60s)")
		metricsFlag  = flag.String("metrics-addr", "", "Prometheus listen address (default: PRBEACON_METRICS_ADDR; empty disables)")
		selfTest     = flag.Bool("test", false, "flash the blink(1) red, green, blue and exit")
		testMode     = flag.Bool("test-mode", false, "also notify for your own comments and reviews")
	)
	flag.Parse()

	// 2. Load configuration. A .env file is optional.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *usernameFlag != "" {
		cfg.Username = *usernameFlag
	}
	if *intervalFlag > 0 {
		cfg.PollInterval = *intervalFlag
	}
	if *metricsFlag != "" {
		cfg.MetricsAddr = *metricsFlag
	}
	cfg.TestMode = *testMode

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open the notification device. A missing device is tolerated; the
	// notifier reconnects lazily.
	notifier := blink1adapter.NewNotifier()
	defer notifier.Close()

	if *selfTest {
		if err := notifier.SelfTest(ctx); err != nil {
			return fmt.Errorf("blink(1) self-test failed: %w", err)
		}
		slog.Info("blink(1) self-test complete")
		return nil
	}

	// 5. Create the GitHub client and resolve the monitored user.
	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	if cfg.Username == "" {
		login, err := ghClient.FetchAuthenticatedUser(ctx)
		if err != nil {
			return fmt.Errorf("resolving monitored username: %w", err)
		}
		cfg.Username = login
		slog.Info("using authenticated user", "username", login)
	}

	// 6. Start the metrics listener if configured.
	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter(cfg.MetricsAddr)
		go func() {
			slog.Info("metrics server starting", "addr", cfg.MetricsAddr)
			if err := exporter.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	// 7. Run the monitor until shutdown or a fatal auth failure.
	if cfg.TestMode {
		slog.Info("test mode enabled, own comments and reviews will notify")
	}
	seen := memory.NewSeenStore()
	monitor := application.NewMonitorService(
		ghClient,
		seen,
		notifier,
		exporter,
		cfg.Username,
		cfg.PollInterval,
		cfg.TestMode,
	)
	monitorErr := monitor.Start(ctx)

	// 8. Drain the metrics server.
	if exporter != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exporter.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return monitorErr
}
