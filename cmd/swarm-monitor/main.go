// swarm-monitor watches Docker Swarm container lifecycle events and
// relays Discord webhook notifications.
//
// Usage:
//
//	DISCORD_WEBHOOK_URL=https://discord.com/api/webhooks/... swarm-monitor
//
// Exit codes: 0 on clean shutdown (interrupt), 1 on missing
// configuration, failed swarm connectivity, or an event stream fault.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/config"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/dedup"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/discord"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/monitor"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/notifier"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/swarm"
)

var version = "dev"

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "swarm-monitor",
		Short: "Docker Swarm container event monitor with Discord notifications",
		Long: `swarm-monitor subscribes to the local Docker engine's container
event stream and posts a Discord notification for every swarm service
container that starts or stops, with time-windowed deduplication.

Configuration is environment-driven; DISCORD_WEBHOOK_URL is required.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
	}
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Optional YAML config file; environment variables take precedence.")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting Docker Swarm monitor",
		zap.String("version", version),
		zap.String("webhook_url", notifier.RedactURL(cfg.WebhookURL)),
		zap.Float64("dedup_window_seconds", cfg.DedupWindowSeconds),
		zap.Int("retry_attempts", cfg.RetryAttempts),
		zap.Int("timeout_seconds", cfg.TimeoutSeconds),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := swarm.New(logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.VerifyMembership(ctx); err != nil {
		return err
	}

	client, err := notifier.NewClient(logger, notifier.Config{
		URL:            cfg.WebhookURL,
		TimeoutSeconds: cfg.TimeoutSeconds,
		RetryAttempts:  cfg.RetryAttempts,
	})
	if err != nil {
		return err
	}

	formatter := discord.NewFormatter(cfg.Username, cfg.AvatarURL, nodeInfo(ctx, logger, engine))
	window := dedup.New(cfg.DedupWindow())

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	return monitor.New(logger, engine, client, formatter, window).Run(ctx)
}

// buildLogger constructs the production logger with the configured
// level and ISO8601 timestamps.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return logCfg.Build()
}

// nodeInfo gathers the identity reported in notifications. The
// engine-reported hostname wins; host introspection fills in platform
// details when available.
func nodeInfo(ctx context.Context, logger *zap.Logger, engine *swarm.Client) discord.NodeInfo {
	info := discord.NodeInfo{Hostname: "unknown"}
	if name, err := engine.NodeName(ctx); err == nil && name != "" {
		info.Hostname = name
	} else if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
		info.Kernel = hi.KernelVersion
	} else {
		logger.Debug("Host introspection unavailable", zap.Error(err))
	}
	return info
}

func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
