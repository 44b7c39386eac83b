package cli

import (
	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Owner string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's reservations, newest first",
		Example: `  gpures list --as alice
  gpures list --as alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "as", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd)
	rs, err := e.engine.List(commandContext(cmd), opts.Owner)
	if err != nil {
		return f.Fail("list", err)
	}

	if opts.Format == "json" {
		return f.Success(rs)
	}
	printReservations(cmd.OutOrStdout(), rs)
	return nil
}
