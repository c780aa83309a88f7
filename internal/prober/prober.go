// Package prober measures TCP reachability and handshake latency using
// gsock's non-blocking endpoints.
package prober

import (
	"context"
	"errors"
	"time"

	"github.com/hervehildenbrand/gsock/internal/waiter"
	"github.com/hervehildenbrand/gsock/pkg/probe"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
	"github.com/hervehildenbrand/gsock/pkg/tcp"
)

// Config holds probe configuration.
type Config struct {
	Count    int           // Attempts per run
	Interval time.Duration // Pause between attempts
	Timeout  time.Duration // Per-attempt handshake deadline
	TTL      int           // IP TTL / hop limit, 0 keeps the system default
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() *Config {
	return &Config{
		Count:    4,
		Interval: time.Second,
		Timeout:  3 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Count <= 0 {
		return errors.New("count must be positive")
	}
	if c.Interval < 0 {
		return errors.New("interval must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.TTL < 0 || c.TTL > 255 {
		return errors.New("ttl must be between 0 and 255")
	}
	return nil
}

// AttemptCallback is called after each attempt as it completes.
type AttemptCallback func(probe.Attempt)

// Prober runs TCP connect probes against a single target.
type Prober struct {
	config *Config
}

// New creates a new Prober with the given configuration.
func New(cfg *Config) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Prober{config: cfg}, nil
}

// Run performs the configured number of attempts against addr, invoking
// the callback per attempt. Cancelling the context stops the run early and
// returns the attempts made so far along with the context's error.
func (p *Prober) Run(ctx context.Context, addr sockaddr.Addr, callback AttemptCallback) (*probe.Result, error) {
	result := probe.NewResult(addr.String(), addr.String())
	result.StartTime = time.Now()
	defer func() { result.EndTime = time.Now() }()

	for i := 0; i < p.config.Count; i++ {
		if i > 0 && p.config.Interval > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(p.config.Interval):
			}
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		attempt, err := p.Once(addr)
		if err != nil {
			return result, err
		}
		result.Attempts = append(result.Attempts, attempt)
		if callback != nil {
			callback(attempt)
		}
	}

	return result, nil
}

// Once performs a single connection attempt: initiate a non-blocking
// connect, park until the descriptor turns writable, then read the outcome
// off the socket. A refused port and a deadline expiry are attempt
// outcomes, not errors; only local setup failures are returned as errors.
func (p *Prober) Once(addr sockaddr.Addr) (probe.Attempt, error) {
	start := time.Now()

	s, err := tcp.Connect(addr)
	if err != nil {
		if tcp.IsConnRefused(err) {
			return probe.Attempt{RTT: time.Since(start), Refused: true}, nil
		}
		return probe.Attempt{}, err
	}
	defer s.Close()

	if p.config.TTL > 0 {
		if err := s.SetTTL(p.config.TTL); err != nil {
			return probe.Attempt{}, err
		}
	}

	deadline := start.Add(p.config.Timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return probe.Attempt{Timeout: true}, nil
		}
		if err := waiter.Wait(s.Raw(), waiter.Writable, remain); err != nil {
			if errors.Is(err, waiter.ErrTimeout) {
				return probe.Attempt{Timeout: true}, nil
			}
			return probe.Attempt{}, err
		}

		done, cerr := s.ConnectComplete()
		if cerr != nil {
			if tcp.IsConnRefused(cerr) {
				return probe.Attempt{RTT: time.Since(start), Refused: true}, nil
			}
			// Unreachable or reset along the way reads as no answer.
			return probe.Attempt{Timeout: true}, nil
		}
		if done {
			return probe.Attempt{RTT: time.Since(start)}, nil
		}
	}
}
