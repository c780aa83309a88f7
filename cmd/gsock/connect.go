package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hervehildenbrand/gsock/internal/prober"
	"github.com/hervehildenbrand/gsock/internal/waiter"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
	"github.com/hervehildenbrand/gsock/pkg/tcp"
	"github.com/spf13/cobra"
)

// ConnectConfig holds the parsed connect CLI configuration.
type ConnectConfig struct {
	Target   string
	Timeout  string
	NoDelay  bool
	TTL      int
	IPv4Only bool
	IPv6Only bool
}

// NewConnectCmd creates the connect subcommand.
func NewConnectCmd() *cobra.Command {
	var cfg ConnectConfig

	cmd := &cobra.Command{
		Use:   "connect <host:port>",
		Short: "Open a TCP connection and pump stdin/stdout through it",
		Long: `connect opens a non-blocking TCP connection to the target, forwards
stdin to the peer and writes whatever the peer sends to stdout. Closing
stdin shuts down the write side; the connection ends when the peer is done.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.IPv4Only && cfg.IPv6Only {
				return fmt.Errorf("-4/--ipv4 and -6/--ipv6 are mutually exclusive")
			}
			if _, err := time.ParseDuration(cfg.Timeout); err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Target = args[0]
			return runConnect(cmd, &cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Timeout, "timeout", "10s", "Connect timeout")
	cmd.Flags().BoolVar(&cfg.NoDelay, "nodelay", false, "Set TCP_NODELAY")
	cmd.Flags().IntVar(&cfg.TTL, "ttl", 0, "IP TTL / hop limit (0 = system default)")
	cmd.Flags().BoolVarP(&cfg.IPv4Only, "ipv4", "4", false, "Use IPv4 only")
	cmd.Flags().BoolVarP(&cfg.IPv6Only, "ipv6", "6", false, "Use IPv6 only")

	return cmd
}

// runConnect establishes the connection and runs both pump directions.
func runConnect(cmd *cobra.Command, cfg *ConnectConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	addr, err := prober.ResolveTarget(cfg.Target, getAddressFamily(cfg.IPv4Only, cfg.IPv6Only))
	if err != nil {
		return fmt.Errorf("failed to resolve target: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	s, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.NoDelay {
		if err := s.SetNoDelay(true); err != nil {
			return fmt.Errorf("failed to set nodelay: %w", err)
		}
	}
	if cfg.TTL > 0 {
		if err := s.SetTTL(cfg.TTL); err != nil {
			return fmt.Errorf("failed to set ttl: %w", err)
		}
	}

	local, err := s.LocalAddr()
	if err != nil {
		return fmt.Errorf("failed to read local address: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "connected to %s from %s\n", addr, local)

	// stdin → socket; EOF on stdin half-closes the connection.
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := cmd.InOrStdin().Read(buf)
			if n > 0 {
				if werr := writeFull(ctx, s, buf[:n]); werr != nil {
					cancel()
					return
				}
			}
			if err != nil {
				s.Shutdown(tcp.ShutWrite)
				return
			}
		}
	}()

	// socket → stdout until the peer closes.
	return pumpToWriter(ctx, s, cmd.OutOrStdout())
}

// dial initiates a non-blocking connect and drives it to completion.
func dial(addr sockaddr.Addr, timeout time.Duration) (*tcp.Stream, error) {
	s, err := tcp.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			s.Close()
			return nil, fmt.Errorf("connect to %s timed out after %v", addr, timeout)
		}
		if err := waiter.Wait(s.Raw(), waiter.Writable, remain); err != nil {
			if errors.Is(err, waiter.ErrTimeout) {
				continue
			}
			s.Close()
			return nil, fmt.Errorf("poll failed: %w", err)
		}

		done, cerr := s.ConnectComplete()
		if cerr != nil {
			s.Close()
			return nil, fmt.Errorf("connect to %s failed: %w", addr, cerr)
		}
		if done {
			return s, nil
		}
	}
}

// pumpToWriter copies socket data to w until the peer closes or the
// context is cancelled.
func pumpToWriter(ctx context.Context, s *tcp.Stream, w io.Writer) error {
	buf := make([]byte, 32*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.Read(buf)
		if err != nil {
			if tcp.IsWouldBlock(err) {
				if werr := waiter.Wait(s.Raw(), waiter.Readable, acceptPollInterval); werr != nil && !errors.Is(werr, waiter.ErrTimeout) {
					return werr
				}
				continue
			}
			return err
		}
		if n == 0 {
			// Peer closed its write side.
			return nil
		}

		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
}
