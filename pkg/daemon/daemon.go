package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/webgridhq/webgrid/pkg/capability"
	"github.com/webgridhq/webgrid/pkg/config"
	"github.com/webgridhq/webgrid/pkg/journal"
	"github.com/webgridhq/webgrid/pkg/metrics"
	"github.com/webgridhq/webgrid/pkg/sessionqueue"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "dev"

// Daemon owns the session queue and everything serving it.
type Daemon struct {
	config  *config.Config
	queue   *sessionqueue.SessionQueue
	journal *journal.Journal
	server  *Server
	logger  *Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDaemon wires the queue, journal, and metrics from configuration.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := NewLogger("webgridd", LogLevel(cfg.LogLevel))

	queue, err := sessionqueue.New(capability.NewGlobMatcher(), cfg.QueueOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create session queue: %w", err)
	}

	jnl, err := journal.New(journal.Options{
		RecentSize: cfg.JournalRecent,
		MaxAge:     cfg.JournalMaxAge,
		Path:       cfg.JournalPath,
	})
	if err != nil {
		queue.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	qm, err := metrics.NewQueueMetrics(registry, queue.Len)
	if err != nil {
		queue.Close()
		jnl.Close()
		return nil, fmt.Errorf("failed to register queue metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:  cfg,
		queue:   queue,
		journal: jnl,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	d.server = NewServer(queue, jnl, qm, registry, cfg.Port, Version, cfg.EnableProfiling, logger)
	return d, nil
}

// Start brings the daemon up and returns once the listener is running.
func (d *Daemon) Start() error {
	d.logger.LogDaemonStart(d.config.Port, Version)

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.server.Start(d.ctx); err != nil {
			d.logger.LogError("http server", err)
			d.cancel()
		}
	}()

	d.setupSignalHandling()

	d.logger.Info("daemon started")
	return nil
}

// Stop stops the daemon gracefully
func (d *Daemon) Stop() error {
	d.logger.Info("daemon stopping")

	d.cancel()

	// Fail queued waiters before waiting on the HTTP shutdown: Shutdown
	// blocks on in-flight handlers, and every enqueue handler sits in
	// AddToQueue until its request resolves.
	drained := d.queue.ClearQueue()
	if drained > 0 {
		d.logger.Info("drained queue on shutdown", "count", drained)
	}

	d.server.Stop()
	d.wg.Wait()
	d.queue.Close()

	if err := d.journal.Close(); err != nil {
		d.logger.LogError("journal close", err)
	}
	d.removePidFile()

	d.logger.Info("daemon stopped")
	return nil
}

// Wait blocks until the daemon is asked to shut down.
func (d *Daemon) Wait() {
	<-d.ctx.Done()
	d.wg.Wait()
}

// setupSignalHandling sets up graceful shutdown on signals
func (d *Daemon) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case sig := <-sigChan:
			d.logger.Info("received signal, shutting down", "signal", sig.String())
			d.cancel()
		case <-d.ctx.Done():
		}
	}()
}

// writePidFile writes the process ID to a file
func (d *Daemon) writePidFile() error {
	if d.config.PidFile == "" {
		return nil
	}

	dir := filepath.Dir(d.config.PidFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	pid := os.Getpid()
	return os.WriteFile(d.config.PidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// removePidFile removes the PID file
func (d *Daemon) removePidFile() {
	if d.config.PidFile != "" {
		os.Remove(d.config.PidFile)
	}
}

// IsRunning checks if a daemon is running by checking the PID file
func IsRunning(pidFile string) (bool, int, error) {
	if pidFile == "" {
		return false, 0, nil
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return false, 0, fmt.Errorf("invalid PID file format: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, pid, nil
	}

	// Signal 0 probes liveness without delivering anything
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, pid, nil
	}

	return true, pid, nil
}
