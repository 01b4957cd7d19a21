// Command availctl converts availability windows between timezones and runs overlap searches
// over rule files, without a running service. It can also push rules to and health-check one.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "availctl",
		Short: "Inspect and exercise meetsync availability rules",
		Long: `availctl is a developer tool for the availability service.

It converts local weekly patterns and one-off overrides to their stored UTC form,
computes heatmaps, common slots and meeting sessions from a rules file, pushes
rules to a running service and checks its gRPC health.`,
		Version:       fmt.Sprintf("%s (%s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPatternCmd(), newOverrideCmd(), newHeatmapCmd(), newPushCmd(), newHealthCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
