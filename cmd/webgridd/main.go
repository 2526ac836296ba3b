package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/webgridhq/webgrid/pkg/config"
	"github.com/webgridhq/webgrid/pkg/daemon"
)

var (
	configFile  = flag.String("config", "", "Configuration file path (TOML)")
	port        = flag.Int("port", 4444, "HTTP server port")
	pidFile     = flag.String("pid-file", "/tmp/webgridd.pid", "PID file path")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	journalPath = flag.String("journal", "", "SQLite journal path (empty disables persistence)")
	enableProf  = flag.Bool("enable-profiling", false, "Enable profiling endpoints")
	showVersion = flag.Bool("version", false, "Show version information")
	showStatus  = flag.Bool("status", false, "Show daemon status")
	stopDaemon  = flag.Bool("stop", false, "Stop running daemon")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("webgridd version %s\n", daemon.Version)
		os.Exit(0)
	}

	if *showStatus {
		showDaemonStatus()
		os.Exit(0)
	}

	if *stopDaemon {
		stopRunningDaemon()
		os.Exit(0)
	}

	cfg, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if running, pid, _ := daemon.IsRunning(cfg.PidFile); running {
		fmt.Fprintf(os.Stderr, "Daemon is already running with PID %d\n", pid)
		os.Exit(1)
	}

	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
		os.Exit(1)
	}

	if err := d.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		os.Exit(1)
	}

	d.Wait()
	d.Stop()
}

// loadConfiguration merges the config file, environment, and flags.
// Flags win when set explicitly.
func loadConfiguration() (*config.Config, error) {
	cfg, err := config.LoadWithEnvironment(*configFile)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "pid-file":
			cfg.PidFile = *pidFile
		case "log-level":
			cfg.LogLevel = *logLevel
		case "journal":
			cfg.JournalPath = *journalPath
		case "enable-profiling":
			cfg.EnableProfiling = *enableProf
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// showDaemonStatus shows the current daemon status
func showDaemonStatus() {
	running, pid, err := daemon.IsRunning(*pidFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking daemon status: %v\n", err)
		return
	}

	if running {
		fmt.Printf("Daemon is running with PID %d\n", pid)
		fmt.Printf("HTTP Port: %d\n", *port)
	} else {
		fmt.Println("Daemon is not running")
		if pid != 0 {
			fmt.Printf("Stale PID file found with PID %d\n", pid)
		}
	}
}

// stopRunningDaemon stops a running daemon
func stopRunningDaemon() {
	running, pid, err := daemon.IsRunning(*pidFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking daemon status: %v\n", err)
		return
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding process %d: %v\n", pid, err)
		return
	}

	if err := process.Signal(os.Interrupt); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping daemon: %v\n", err)
		return
	}

	fmt.Printf("Sent stop signal to daemon (PID %d)\n", pid)

	time.Sleep(2 * time.Second)
	if running, _, _ := daemon.IsRunning(*pidFile); !running {
		fmt.Println("Daemon stopped successfully")
	} else {
		fmt.Println("Daemon may still be running, check status")
	}
}

// init sets up flag usage information
func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "webgridd - browser session queue daemon\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                            # Start daemon with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -status                    # Show daemon status\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stop                      # Stop running daemon\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config /etc/webgrid.toml  # Use custom config file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nThe daemon queues new-session requests over HTTP until a distributor\n")
		fmt.Fprintf(os.Stderr, "claims them, and exposes health, stats, and Prometheus endpoints.\n")
	}
}
