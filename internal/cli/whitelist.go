package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// NewWhitelistCommand creates the whitelist command group.
func NewWhitelistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage trusted device MACs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "add <mac>",
		Short:         "Add a MAC to the whitelist",
		Long:          "Validate a MAC address and add it to the whitelist. The server drops the device from its detections on its next cycle.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhitelistAdd(rootOpts, cmd, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List whitelisted MACs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhitelistList(rootOpts, cmd)
		},
	})

	return cmd
}

func runWhitelistAdd(opts *RootOptions, cmd *cobra.Command, raw string) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	_, repo, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := service.NewWhitelistService(repo, service.NewEventBus(), nil)
	entry, err := svc.Add(ctx, raw)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			out.Error(ve.Err.Error(), map[string]string{"mac": raw})
			return NewExitError(ExitFailure, ve.Err.Error())
		}
		return WrapExitError(ExitCommandError, "add whitelist entry", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	return out.Success(entry, fmt.Sprintf("%s Whitelisted %s\n", green("✓"), entry.MAC))
}

func runWhitelistList(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	_, repo, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := service.NewWhitelistService(repo, service.NewEventBus(), nil).List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "list whitelist", err)
	}

	var b strings.Builder
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(&b, "%s\n", yellow(fmt.Sprintf("Whitelist (%d):", len(entries))))
	if len(entries) == 0 {
		fmt.Fprintf(&b, "  %s\n", gray("No trusted devices"))
	}
	for _, e := range entries {
		added := ""
		if !e.CreatedAt.IsZero() {
			added = gray(e.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "  %-17s  %s\n", e.MAC, added)
	}

	return out.Success(entries, b.String())
}
