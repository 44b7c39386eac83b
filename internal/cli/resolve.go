package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/reservation"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Actor string
	Key   string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <id> <accept|dispute>",
		Short: "Accept or dispute a displacement",
		Long: `Answer a displacement of one of your need_confirm reservations.

accept   gives the slot to the challenger; your reservation is cancelled.
dispute  keeps the slot when your reservation is older; the challenger is
         rejected.

Examples:
  gpures resolve 0b5e... accept --as alice
  gpures resolve 0b5e... dispute --as alice --key dispute-1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "as", "", "caller's owner id (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runResolve(opts *ResolveOptions, id, decision string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	d, err := reservation.ParseDecision(decision)
	if err != nil {
		return f.Fail("resolve", err)
	}

	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := e.engine.Resolve(commandContext(cmd), opts.Actor, id, d, opts.Key)
	if err != nil {
		return f.Fail("resolve", err)
	}

	if opts.Format == "json" {
		return f.Success(r)
	}
	printReservation(cmd.OutOrStdout(), r)
	return nil
}
