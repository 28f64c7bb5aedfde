package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"anchorwatch/internal/adapter"
	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// NewDetectionsCommand creates the detections command.
func NewDetectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detections",
		Short: "Run one reconciliation and print the untrusted devices",
		Long: `Fetch the latest detection batch and the whitelist from the configured store,
drop whitelisted devices, deduplicate, and print the result. Nothing is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetections(rootOpts, cmd)
		},
	}
}

func runDetections(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	cfg, repo, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	reconciler := service.NewReconciler(
		adapter.NewDetectionFetcher(repo, cfg.Poll.BatchSize),
		adapter.NewWhitelistFetcher(repo),
		cfg.Poll.NotificationTTL.Duration(),
	)
	res, err := reconciler.Cycle(ctx, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "reconcile", err)
	}

	return out.Success(res, formatDetections(res))
}

func formatDetections(res *service.CycleResult) string {
	var b strings.Builder

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(&b, "\n%s\n\n", cyan("=== Detected Devices ==="))
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "%s %s\n", yellow("⚠"), w)
	}

	if len(res.Current) == 0 {
		fmt.Fprintf(&b, "  %s\n", gray("No untrusted devices"))
	} else {
		fmt.Fprintf(&b, "  %-17s  %-12s  %-16s  %5s  %-7s  %s\n", "MAC", "ANCHOR", "SSID", "RSSI", "SIGNAL", "BLOCK")
		for _, d := range res.Current {
			block := "-"
			if d.Block > 0 {
				block = fmt.Sprintf("%d", d.Block)
			}
			fmt.Fprintf(&b, "  %-17s  %-12s  %-16s  %5d  %s  %s\n",
				d.MAC, d.AnchorID, d.SSID, d.RSSI, signalColor(domain.ClassifySignal(d.RSSI)), block)
		}
	}

	fmt.Fprintf(&b, "\n  Total: %d devices, %d anchors (%d raw, %d trusted, whitelist %d)\n",
		len(res.Current), res.Current.Anchors(), res.RawCount, res.Excluded, res.WhitelistCount)
	return b.String()
}

func signalColor(s domain.SignalStrength) string {
	label := fmt.Sprintf("%-7s", s)
	switch s {
	case domain.SignalStrong:
		return color.New(color.FgGreen).Sprint(label)
	case domain.SignalMedium:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return color.New(color.FgRed).Sprint(label)
	}
}
