package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/reservation"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Actor string
}

// ShowResult is the JSON payload of show.
type ShowResult struct {
	Reservation reservation.Reservation  `json:"reservation"`
	Challenger  *reservation.Reservation `json:"challenger,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one reservation",
		Long: `Show one reservation owned by the caller.

A need_confirm reservation also shows the challenger that displaced it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "as", "", "caller's owner id (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	r, err := e.engine.Get(ctx, opts.Actor, id)
	if err != nil {
		return f.Fail("show", err)
	}
	result := ShowResult{Reservation: r}
	if r.Status == reservation.StatusNeedConfirm {
		challenger, err := e.engine.Challenger(ctx, opts.Actor, id)
		if err != nil {
			return f.Fail("show", err)
		}
		result.Challenger = &challenger
	}

	if opts.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	printReservation(w, r)
	if result.Challenger != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Displaced by %s, owned by %s:\n", result.Challenger.ID, result.Challenger.OwnerID)
		fmt.Fprintf(w, "  %s\n", result.Challenger.Details())
		fmt.Fprintf(w, "Run 'gpures resolve %s accept' or 'gpures resolve %s dispute'.\n", r.ID, r.ID)
	}
	return nil
}
