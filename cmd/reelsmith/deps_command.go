package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that the external encoder binaries are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			for _, status := range statuses {
				fmt.Fprintln(out, renderStatusLine(status.Name, depKind(status), depMessage(status), colorize))
			}
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependency missing: %s", len(missing), missing[0].Detail)
			}
			return nil
		},
	}
}

func depKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func depMessage(status deps.Status) string {
	if status.Available {
		return status.Path
	}
	if status.Optional {
		return status.Detail + " (optional: " + status.Description + ")"
	}
	return status.Detail
}
