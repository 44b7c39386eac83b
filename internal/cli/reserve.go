package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/reservation"
)

// ReserveOptions holds flags for the reserve command.
type ReserveOptions struct {
	*RootOptions
	Owner    string
	Resource string
	Start    string
	End      string
	Purpose  string
	Priority int
	Key      string
}

// NewReserveCommand creates the reserve command.
func NewReserveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReserveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Request a reservation",
		Long: `Request exclusive use of a resource for a time interval.

Without overlaps the reservation is confirmed at once. Otherwise it is pending
and every overlapping reservation waits for its owner to accept or dispute.

Exit codes:
  0 - Reservation stored (confirmed, pending or rejected by policy)
  1 - Request rejected (invalid interval, unknown resource, ...)
  2 - Command error

Examples:
  gpures reserve --as alice --resource gpu-a \
    --start 2030-05-01T10:00:00Z --end 2030-05-01T12:00:00Z --purpose training
  gpures reserve --as bob --resource gpu-a --start ... --end ... --purpose eval --key retry-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReserve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "as", "", "owner id (required)")
	cmd.Flags().StringVar(&opts.Resource, "resource", "", "resource id (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "interval start, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "interval end, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.Purpose, "purpose", "", "what the reservation is for (required)")
	cmd.Flags().IntVar(&opts.Priority, "priority", 0, "priority (used by the priority policy)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "idempotency key for safe retries")
	for _, name := range []string{"as", "resource", "start", "end", "purpose"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runReserve(opts *ReserveOptions, cmd *cobra.Command) error {
	iv, err := parseInterval(opts.Start, opts.End)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid interval", err)
	}

	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd)
	r, err := e.engine.Create(commandContext(cmd), reservation.Request{
		OwnerID:        opts.Owner,
		ResourceID:     opts.Resource,
		Interval:       iv,
		Purpose:        opts.Purpose,
		Priority:       opts.Priority,
		IdempotencyKey: opts.Key,
	})
	if err != nil {
		return f.Fail("reserve", err)
	}

	if opts.Format == "json" {
		return f.Success(r)
	}
	printReservation(cmd.OutOrStdout(), r)
	return nil
}
