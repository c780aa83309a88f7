package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hervehildenbrand/gsock/internal/display"
	"github.com/hervehildenbrand/gsock/internal/export"
	"github.com/hervehildenbrand/gsock/internal/monitor"
	"github.com/hervehildenbrand/gsock/internal/prober"
	"github.com/hervehildenbrand/gsock/pkg/probe"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ProbeConfig holds the parsed probe CLI configuration.
type ProbeConfig struct {
	Target       string
	Count        int
	Interval     string
	Timeout      string
	TTL          int
	Watch        bool
	AlertLatency string
	AlertLoss    string
	Simple       bool
	NoColor      bool
	Timestamps   bool
	Output       string
	Format       string
	IPv4Only     bool
	IPv6Only     bool
	DryRun       bool
}

// getAddressFamily returns the AddressFamily based on config flags.
func getAddressFamily(ipv4, ipv6 bool) prober.AddressFamily {
	if ipv4 {
		return prober.AddressFamilyIPv4
	}
	if ipv6 {
		return prober.AddressFamilyIPv6
	}
	return prober.AddressFamilyAuto
}

// NewProbeCmd creates the probe subcommand.
func NewProbeCmd() *cobra.Command {
	var cfg ProbeConfig

	cmd := &cobra.Command{
		Use:   "probe <host:port>",
		Short: "Measure TCP handshake reachability and latency",
		Long: `probe opens non-blocking TCP connections to the target and measures
how long the handshake takes, reporting loss, refusals and RTT statistics.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// -4 and -6 are mutually exclusive
			if cfg.IPv4Only && cfg.IPv6Only {
				return fmt.Errorf("-4/--ipv4 and -6/--ipv6 are mutually exclusive")
			}

			if _, err := time.ParseDuration(cfg.Interval); err != nil {
				return fmt.Errorf("invalid interval: %w", err)
			}
			if _, err := time.ParseDuration(cfg.Timeout); err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Target = args[0]

			if cfg.DryRun {
				// Just validate args and return
				return nil
			}

			return runProbe(cmd, &cfg)
		},
	}

	// Probe flags
	cmd.Flags().IntVarP(&cfg.Count, "count", "c", 4, "Attempts per run")
	cmd.Flags().StringVar(&cfg.Interval, "interval", "1s", "Interval between attempts")
	cmd.Flags().StringVar(&cfg.Timeout, "timeout", "3s", "Per-attempt handshake timeout")
	cmd.Flags().IntVar(&cfg.TTL, "ttl", 0, "IP TTL / hop limit (0 = system default)")

	// Watch mode flags
	cmd.Flags().BoolVarP(&cfg.Watch, "watch", "w", false, "Continuous watch mode")
	cmd.Flags().StringVar(&cfg.AlertLatency, "alert-latency", "", "Alert on latency threshold (e.g., 100ms)")
	cmd.Flags().StringVar(&cfg.AlertLoss, "alert-loss", "", "Alert on loss threshold (e.g., 5%)")

	// Display flags
	cmd.Flags().BoolVar(&cfg.Simple, "simple", false, "Simple output (no TUI)")
	cmd.Flags().BoolVar(&cfg.NoColor, "no-color", false, "Disable colors")
	cmd.Flags().BoolVarP(&cfg.Timestamps, "timestamps", "t", false, "Prefix attempts with wall-clock time")

	// Export flags
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Export to file (json/csv/txt)")
	cmd.Flags().StringVar(&cfg.Format, "format", "", "Explicit export format")

	// IP version flags
	cmd.Flags().BoolVarP(&cfg.IPv4Only, "ipv4", "4", false, "Use IPv4 only")
	cmd.Flags().BoolVarP(&cfg.IPv6Only, "ipv6", "6", false, "Use IPv6 only")

	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Validate args without probing")

	return cmd
}

// runProbe executes the probe based on configuration.
func runProbe(cmd *cobra.Command, cfg *ProbeConfig) error {
	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Resolve target
	addr, err := prober.ResolveTarget(cfg.Target, getAddressFamily(cfg.IPv4Only, cfg.IPv6Only))
	if err != nil {
		return fmt.Errorf("failed to resolve target: %w", err)
	}

	proberCfg, err := buildProberConfig(cfg)
	if err != nil {
		return err
	}

	p, err := prober.New(proberCfg)
	if err != nil {
		return fmt.Errorf("failed to create prober: %w", err)
	}

	if cfg.Watch {
		err := runWatch(ctx, cmd, cfg, p, addr)
		if err != nil && ctx.Err() != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "\nWatch stopped")
			return nil
		}
		return err
	}

	return runProbeOnce(ctx, cmd, cfg, p, addr)
}

// buildProberConfig converts CLI flags into a prober configuration.
func buildProberConfig(cfg *ProbeConfig) (*prober.Config, error) {
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	return &prober.Config{
		Count:    cfg.Count,
		Interval: interval,
		Timeout:  timeout,
		TTL:      cfg.TTL,
	}, nil
}

// runProbeOnce runs a single probe cycle with simple text output.
func runProbeOnce(ctx context.Context, cmd *cobra.Command, cfg *ProbeConfig, p *prober.Prober, addr sockaddr.Addr) error {
	renderer := display.NewSimpleRenderer()
	renderer.ShowTimestamps = cfg.Timestamps

	renderer.RenderHeader(cmd.OutOrStdout(), cfg.Target, addr.String())

	seq := 0
	result, err := p.Run(ctx, addr, func(a probe.Attempt) {
		fmt.Fprintln(cmd.OutOrStdout(), renderer.RenderAttempt(seq, a))
		seq++
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "\nProbe interrupted")
			renderer.RenderSummary(cmd.OutOrStdout(), result)
			return nil
		}
		return err
	}
	result.Target = cfg.Target

	renderer.RenderSummary(cmd.OutOrStdout(), result)

	// Export if output file specified
	if cfg.Output != "" {
		format := export.Format(cfg.Format)
		if err := export.ExportToFile(cfg.Output, format, result); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results exported to %s\n", cfg.Output)
	}

	return nil
}

// parseLatencyThreshold parses a latency threshold string (e.g., "100ms", "1s").
func parseLatencyThreshold(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// parseLossThreshold parses a loss threshold string (e.g., "5%", "10").
func parseLossThreshold(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	// Remove percent sign if present
	s = strings.TrimSuffix(s, "%")
	return strconv.ParseFloat(s, 64)
}

// newWatchMonitor builds the change monitor for watch mode.
func newWatchMonitor(cfg *ProbeConfig) (*monitor.Monitor, error) {
	latencyThreshold, err := parseLatencyThreshold(cfg.AlertLatency)
	if err != nil {
		return nil, fmt.Errorf("invalid latency threshold: %w", err)
	}
	lossThreshold, err := parseLossThreshold(cfg.AlertLoss)
	if err != nil {
		return nil, fmt.Errorf("invalid loss threshold: %w", err)
	}

	monCfg := monitor.DefaultConfig()
	monCfg.LatencyThreshold = latencyThreshold
	monCfg.LossThreshold = lossThreshold
	return monitor.NewMonitor(monCfg), nil
}

// runWatch runs continuous watch mode, with the TUI on a terminal and a
// plain line stream otherwise.
func runWatch(ctx context.Context, cmd *cobra.Command, cfg *ProbeConfig, p *prober.Prober, addr sockaddr.Addr) error {
	mon, err := newWatchMonitor(cfg)
	if err != nil {
		return err
	}

	useTUI := !cfg.Simple && !cfg.NoColor && term.IsTerminal(int(os.Stdout.Fd()))
	if useTUI {
		return runWatchTUI(ctx, cfg, p, mon, addr)
	}
	return runWatchPlain(ctx, cmd, cfg, p, mon, addr)
}

// runWatchPlain streams attempts and alerts as plain text lines.
func runWatchPlain(ctx context.Context, cmd *cobra.Command, cfg *ProbeConfig, p *prober.Prober, mon *monitor.Monitor, addr sockaddr.Addr) error {
	renderer := display.NewSimpleRenderer()
	renderer.ShowTimestamps = cfg.Timestamps

	renderer.RenderHeader(cmd.OutOrStdout(), cfg.Target, addr.String())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	mon.SetCallback(func(changes []monitor.Change) {
		for _, c := range changes {
			fmt.Fprintf(cmd.OutOrStdout(), "ALERT: %s\n", c.String())
		}
	})

	seq := 0
	for {
		result, err := p.Run(ctx, addr, func(a probe.Attempt) {
			fmt.Fprintln(cmd.OutOrStdout(), renderer.RenderAttempt(seq, a))
			seq++
		})
		if err != nil {
			return err
		}
		mon.Observe(result)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// runWatchTUI drives the interactive watch display.
func runWatchTUI(ctx context.Context, cfg *ProbeConfig, p *prober.Prober, mon *monitor.Monitor, addr sockaddr.Addr) error {
	attemptChan := make(chan probe.Attempt, 100)
	changeChan := make(chan []monitor.Change, 10)
	doneChan := make(chan bool, 1)

	// Run probe cycles in background
	go func() {
		defer close(attemptChan)
		defer close(changeChan)

		for {
			result, err := p.Run(ctx, addr, func(a probe.Attempt) {
				select {
				case attemptChan <- a:
				case <-ctx.Done():
				}
			})
			if err != nil {
				doneChan <- result.Reachable()
				return
			}
			if changes := mon.Observe(result); len(changes) > 0 {
				select {
				case changeChan <- changes:
				case <-ctx.Done():
				}
			}

			select {
			case <-ctx.Done():
				doneChan <- result.Reachable()
				return
			default:
			}
		}
	}()

	// Run TUI (blocks until user quits)
	if err := display.RunTUI(cfg.Target, addr.String(), attemptChan, changeChan, doneChan); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
