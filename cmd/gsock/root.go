package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gsock",
		Short: "Non-blocking TCP toolkit",
		Long: `gsock probes, serves and connects over raw non-blocking TCP sockets,
featuring handshake latency measurement, continuous monitoring with
latency/loss alerts, and a real-time watch TUI.`,
		SilenceUsage: true,
	}

	return cmd
}
