package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/conflict"
	"github.com/roach88/gpures/internal/reservation"
)

// ConflictsOptions holds flags for the conflicts command.
type ConflictsOptions struct {
	*RootOptions
	Resource string
	Start    string
	End      string
	Exclude  []string
}

// NewConflictsCommand creates the conflicts command.
func NewConflictsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConflictsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List live reservations that overlap an interval",
		Long: `List pending, confirmed and need_confirm reservations on a resource that
overlap the given interval, oldest first. Nothing is written.

Examples:
  gpures conflicts --resource gpu-a --start 2030-05-01T10:00:00Z --end 2030-05-01T12:00:00Z
  gpures conflicts --resource gpu-a --start ... --end ... --exclude need_confirm`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflicts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Resource, "resource", "", "resource id (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "interval start, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "interval end, RFC 3339 (required)")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "statuses to leave out")
	for _, name := range []string{"resource", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runConflicts(opts *ConflictsOptions, cmd *cobra.Command) error {
	iv, err := parseInterval(opts.Start, opts.End)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid interval", err)
	}

	exclude := make([]reservation.Status, 0, len(opts.Exclude))
	for _, s := range opts.Exclude {
		status := reservation.Status(s)
		if !status.Valid() {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown status %q in --exclude", s))
		}
		exclude = append(exclude, status)
	}

	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd)
	found, err := conflict.FindConflicts(commandContext(cmd), e.store, opts.Resource, iv, exclude...)
	if err != nil {
		return f.Fail("conflicts", err)
	}

	if opts.Format == "json" {
		return f.Success(found)
	}
	printReservations(cmd.OutOrStdout(), found)
	return nil
}
