package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// CheckResult is the outcome of check-mac
type CheckResult struct {
	Input       string `json:"input"`
	MAC         string `json:"mac"`
	Whitelisted bool   `json:"whitelisted"`
}

// NewCheckMACCommand creates the check-mac command.
func NewCheckMACCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-mac <mac>",
		Short: "Validate a MAC and report whether it is whitelisted",
		Long: `Normalize and validate a MAC address the same way the whitelist form does,
then look it up in the whitelist. Exits 1 when the MAC is invalid or not trusted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckMAC(rootOpts, cmd, args[0])
		},
	}
}

func runCheckMAC(opts *RootOptions, cmd *cobra.Command, raw string) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	if _, err := domain.CanonicalMAC(raw); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			out.Error(ve.Err.Error(), CheckResult{Input: raw})
			return NewExitError(ExitFailure, ve.Err.Error())
		}
		return err
	}

	_, repo, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	mac, exists, err := service.NewWhitelistService(repo, service.NewEventBus(), nil).Check(ctx, raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "check whitelist", err)
	}

	res := CheckResult{Input: raw, MAC: mac, Whitelisted: exists}
	text := fmt.Sprintf("%s %s is whitelisted\n", color.New(color.FgGreen).Sprint("✓"), mac)
	if !exists {
		text = fmt.Sprintf("%s %s is not whitelisted\n", color.New(color.FgYellow).Sprint("○"), mac)
	}
	if err := out.Success(res, text); err != nil {
		return err
	}
	if !exists {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not whitelisted", mac))
	}
	return nil
}
