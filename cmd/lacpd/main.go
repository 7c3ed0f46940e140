// lacpd is an IEEE 802.1AX Link Aggregation Control Protocol daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/lacpd/internal/config"
	"github.com/dantte-lp/lacpd/internal/configstore"
	"github.com/dantte-lp/lacpd/internal/lacp"
	"github.com/dantte-lp/lacpd/internal/lifecycle"
	lacpmetrics "github.com/dantte-lp/lacpd/internal/metrics"
	"github.com/dantte-lp/lacpd/internal/netio"
	"github.com/dantte-lp/lacpd/internal/server"
	appversion "github.com/dantte-lp/lacpd/internal/version"
)

// shutdownTimeout is the maximum time to wait for the status server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("lacpd starting",
		slog.String("version", appversion.Version),
		slog.String("server_addr", cfg.Server.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	sysMAC, err := resolveSystemMAC(cfg.LACP.SystemMAC)
	if err != nil {
		logger.Error("resolve system MAC", slog.String("error", err.Error()))
		return 1
	}

	if err := runDaemon(cfg, sysMAC, logger, logLevel, *configPath); err != nil {
		logger.Error("lacpd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("lacpd stopped")
	return 0
}

// runDaemon wires the engine, netio transport, OVSDB configuration
// store, metrics/status HTTP servers and D-Bus lifecycle emitter
// together, then runs them under a signal-aware errgroup until
// SIGINT/SIGTERM.
func runDaemon(cfg *config.Config, sysMAC [6]byte, logger *slog.Logger, logLevel *slog.LevelVar, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	collector := lacpmetrics.NewCollector(reg)

	store, err := configstore.New(ctx, cfg.OVSDB.Endpoint, logger)
	if err != nil {
		return fmt.Errorf("connect to OVSDB: %w", err)
	}
	defer store.Close()

	programmer := configstore.NewProgrammer(store, logger)
	sender := netio.NewSender(logger)

	engine := lacp.NewEngine(programmer, sender, sysMAC, cfg.LACP.SystemPriority, logger,
		lacp.WithMetrics(collector),
		lacp.WithConfigPublisher(store),
	)
	store.SetEngine(engine)

	recv := netio.NewReceiver(engine, logger)

	g, gCtx := errgroup.WithContext(ctx)

	store.SetProvisioner(newPortProvisioner(gCtx, sender, recv, logger))

	g.Go(func() error { return engine.Run(gCtx) })
	g.Go(func() error { return store.Monitor(gCtx) })
	g.Go(func() error { return runTicker(gCtx, engine, cfg.LACP.TickInterval) })

	statusSrv := newStatusServer(cfg.Server, engine, logger)
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	g.Go(func() error { return listenAndServe(gCtx, statusSrv, cfg.Server.Addr, "status", logger) })
	g.Go(func() error { return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr, "metrics", logger) })

	emitter, err := lifecycle.Connect(logger)
	if err != nil {
		logger.Warn("D-Bus lifecycle signals disabled", slog.String("error", err.Error()))
	} else {
		defer emitter.Close()
		changes := make(chan struct{}, 1)
		g.Go(func() error { emitter.Watch(gCtx, engine, changes); return nil })
		g.Go(func() error { return pollLAGChanges(gCtx, changes) })
	}

	g.Go(func() error {
		return runSIGHUPReload(gCtx, configPath, logLevel, logger)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, statusSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// runTicker delivers a TickEvent to engine once per interval
// (spec.md §4.6 "1 Hz timer wheel") until ctx is cancelled.
func runTicker(ctx context.Context, engine *lacp.Engine, interval time.Duration) error {
	if interval <= 0 {
		interval = lacp.TickInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			engine.Enqueue(lacp.TickEvent{})
		}
	}
}

// pollLAGChanges nudges the lifecycle emitter once a second; a cheap
// substitute for the Engine pushing change notifications directly
// (lacp.Engine's only cross-goroutine surface is the read-only
// Snapshot/Ports/LAGs trio, so polling its snapshot is the available
// option short of adding a push channel to the protocol task).
func pollLAGChanges(ctx context.Context, changes chan<- struct{}) error {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

// runSIGHUPReload reloads the dynamic log level from configPath on
// every SIGHUP, same pattern as cmd/gobfd's handleSIGHUP; LACP/OVSDB
// config has no static reload path because it is always sourced live
// from the configuration store, not the daemon's own config file.
func runSIGHUPReload(ctx context.Context, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) error {
	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	defer signal.Stop(sigHUP)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigHUP:
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("reload configuration failed, keeping current settings", slog.String("error", err.Error()))
				continue
			}
			oldLevel := logLevel.Level()
			newLevel := config.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)
			logger.Info("configuration reloaded",
				slog.String("old_log_level", oldLevel.String()),
				slog.String("new_log_level", newLevel.String()),
			)
		}
	}
}

func newStatusServer(cfg config.ServerConfig, engine *lacp.Engine, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(engine, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServe(ctx context.Context, srv *http.Server, addr, name string, logger *slog.Logger) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s (%s): %w", addr, name, err)
	}
	logger.Info(name+" server listening", slog.String("addr", addr))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s on %s: %w", name, addr, err)
	}
	return nil
}

func gracefulShutdown(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var err error
	for _, srv := range servers {
		if shutErr := srv.Shutdown(shutdownCtx); shutErr != nil {
			err = errors.Join(err, shutErr)
		}
	}
	logger.Info("graceful shutdown complete")
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// resolveSystemMAC parses an admin-configured override or falls back
// to the first non-loopback interface with a hardware address,
// mirroring ovsdb_if.c's fallback to the bridge MAC when
// other_config:lacp-system-id is unset.
func resolveSystemMAC(override string) ([6]byte, error) {
	var mac [6]byte
	if override != "" {
		hw, err := net.ParseMAC(override)
		if err != nil {
			return mac, fmt.Errorf("parse lacp.system_mac %q: %w", override, err)
		}
		copy(mac[:], hw)
		return mac, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return mac, fmt.Errorf("enumerate interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		copy(mac[:], iface.HardwareAddr)
		return mac, nil
	}
	return mac, errors.New("no non-loopback interface with a hardware address found")
}
