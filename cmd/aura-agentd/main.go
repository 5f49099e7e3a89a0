// Command aura-agentd is the minimal wiring entrypoint for one Aura
// authority: it loads configuration, brings up logging and metrics, and
// constructs the production effect registry the rest of the runtime
// (consensus, syncx, the protocols/* choreographies) is built against.
// A CLI surface for driving those choreographies is out of scope; this
// binary exists so "the agent runtime" is something that actually runs.
package main

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
	aconfig "github.com/aura-network/aura/internal/config"
	"github.com/aura-network/aura/internal/telemetry"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/securestore"
	"github.com/aura-network/aura/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aura-agentd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := aconfig.LoadAgentConfigFromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	promReg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetricsSet(promReg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return fmt.Errorf("generating authority seed: %w", err)
	}
	self := aid.Derive("AURA_AGENTD_AUTHORITY_V1", seed[:])

	net := transport.NewLoopbackNetwork()
	secure, err := securestore.NewMemStore(time.Now)
	if err != nil {
		return fmt.Errorf("building secure store: %w", err)
	}
	jrnl := journal.New()

	// The production effect registry is what consensus, syncx and the
	// protocols/* choreographies are built against; constructing it here
	// is this binary's entire reason to exist until a choreography
	// driver loop is wired on top of it.
	effectsRegistry := effects.NewProductionRegistry(net.Endpoint(self), jrnl, secure)
	now := effectsRegistry.Time.Now()

	logger.Info("aura agent starting",
		zap.String("authority", self.String()),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Duration("sync_base_interval", cfg.Sync.Network.BaseSyncInterval),
		zap.Time("started_at", now),
	)
	metrics.SyncRounds.WithLabelValues("startup").Inc()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("aura agent shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return fmt.Errorf("metrics server: %w", err)
	}

	return server.Close()
}
