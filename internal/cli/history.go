package cli

import (
	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Actor string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history <id>",
		Short:         "Show the status transitions of a reservation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "as", "", "caller's owner id (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runHistory(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd)
	events, err := e.engine.History(commandContext(cmd), opts.Actor, id)
	if err != nil {
		return f.Fail("history", err)
	}

	if opts.Format == "json" {
		return f.Success(events)
	}
	printEvents(cmd.OutOrStdout(), events)
	return nil
}
