package cli

import (
	"github.com/spf13/cobra"
)

// CancelOptions holds flags for the cancel command.
type CancelOptions struct {
	*RootOptions
	Actor string
	Key   string
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CancelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Withdraw a reservation",
		Long: `Withdraw one of your live reservations.

Reservations it displaced get their slot back.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "as", "", "caller's owner id (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runCancel(opts *CancelOptions, id string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd)
	r, err := e.engine.Cancel(commandContext(cmd), opts.Actor, id, opts.Key)
	if err != nil {
		return f.Fail("cancel", err)
	}

	if opts.Format == "json" {
		return f.Success(r)
	}
	printReservation(cmd.OutOrStdout(), r)
	return nil
}
