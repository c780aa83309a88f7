package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hervehildenbrand/gsock/internal/waiter"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
	"github.com/hervehildenbrand/gsock/pkg/tcp"
	"github.com/spf13/cobra"
)

// ListenConfig holds the parsed listen CLI configuration.
type ListenConfig struct {
	Addr    string
	NoDelay bool
	TTL     int
	Quiet   bool
}

// acceptPollInterval bounds how long the accept loop parks between wakeups,
// so context cancellation is noticed promptly.
const acceptPollInterval = 250 * time.Millisecond

// NewListenCmd creates the listen subcommand.
func NewListenCmd() *cobra.Command {
	var cfg ListenConfig

	cmd := &cobra.Command{
		Use:   "listen <ip:port>",
		Short: "Run a TCP echo server on a non-blocking listener",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Addr = args[0]
			return runListen(cmd, &cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.NoDelay, "nodelay", false, "Set TCP_NODELAY on accepted connections")
	cmd.Flags().IntVar(&cfg.TTL, "ttl", 0, "IP TTL / hop limit (0 = system default)")
	cmd.Flags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "Suppress per-connection log lines")

	return cmd
}

// parseBindAddr parses an ip:port literal into a bindable address.
func parseBindAddr(s string) (sockaddr.Addr, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return sockaddr.Addr{}, fmt.Errorf("invalid listen address %q: %w", s, err)
	}
	return sockaddr.FromAddrPort(ap)
}

// runListen binds the listener and serves echo connections until interrupted.
func runListen(cmd *cobra.Command, cfg *ListenConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	addr, err := parseBindAddr(cfg.Addr)
	if err != nil {
		return err
	}

	l, err := tcp.Listen(addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer l.Close()

	if cfg.TTL > 0 {
		if err := l.SetTTL(cfg.TTL); err != nil {
			return fmt.Errorf("failed to set ttl: %w", err)
		}
	}

	bound, err := l.Addr()
	if err != nil {
		return fmt.Errorf("failed to read bound address: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", bound)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "\nListener stopped")
			return nil
		default:
		}

		s, peer, err := l.Accept()
		if err != nil {
			if tcp.IsWouldBlock(err) {
				if werr := waiter.Wait(l.Raw(), waiter.Readable, acceptPollInterval); werr != nil && !errors.Is(werr, waiter.ErrTimeout) {
					return fmt.Errorf("poll failed: %w", werr)
				}
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		if cfg.NoDelay {
			if err := s.SetNoDelay(true); err != nil {
				s.Close()
				continue
			}
		}

		if !cfg.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "accepted connection from %s\n", peer)
		}

		go func() {
			defer s.Close()
			err := echoConn(ctx, s)
			if !cfg.Quiet {
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "connection from %s closed: %v\n", peer, err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "connection from %s closed\n", peer)
				}
			}
		}()
	}
}

// echoConn copies every byte received on s back to the peer.
func echoConn(ctx context.Context, s *tcp.Stream) error {
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
			// Peer finished sending; mirror the shutdown and drain out.
			return s.Shutdown(tcp.ShutWrite)
		}

		if err := writeFull(ctx, s, buf[:n]); err != nil {
			return err
		}
	}
}

// writeFull writes all of b, parking on the waiter whenever the send
// buffer is full.
func writeFull(ctx context.Context, s *tcp.Stream, b []byte) error {
	for len(b) > 0 {
		if ctx.Err() != nil {
			return io.ErrClosedPipe
		}

		n, err := s.Write(b)
		if err != nil {
			if tcp.IsWouldBlock(err) {
				if werr := waiter.Wait(s.Raw(), waiter.Writable, acceptPollInterval); werr != nil && !errors.Is(werr, waiter.ErrTimeout) {
					return werr
				}
				continue
			}
			return err
		}
		b = b[n:]
	}
	return nil
}
