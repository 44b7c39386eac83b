package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/catalog"
	"github.com/roach88/gpures/internal/reservation"
)

// newFormatter builds the formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseInterval parses RFC 3339 start and end flags.
func parseInterval(start, end string) (reservation.Interval, error) {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return reservation.Interval{}, fmt.Errorf("--start: %w", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return reservation.Interval{}, fmt.Errorf("--end: %w", err)
	}
	return reservation.Interval{Start: s, End: e}, nil
}

func printReservation(w io.Writer, r reservation.Reservation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Owner:\t%s\n", r.OwnerID)
	fmt.Fprintf(tw, "Details:\t%s\n", r.Details())
	if r.Priority != 0 {
		fmt.Fprintf(tw, "Priority:\t%d\n", r.Priority)
	}
	if r.SupersededBy != "" {
		fmt.Fprintf(tw, "Superseded by:\t%s\n", r.SupersededBy)
	}
	if len(r.Supersedes) > 0 {
		fmt.Fprintf(tw, "Supersedes:\t%s\n", strings.Join(r.Supersedes, ", "))
	}
	tw.Flush()
}

func printReservations(w io.Writer, rs []reservation.Reservation) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No reservations.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tOWNER\tRESOURCE\tSTART\tEND\tPURPOSE")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Status,
			r.OwnerID,
			r.ResourceID,
			r.Interval.Start.UTC().Format(time.RFC3339),
			r.Interval.End.UTC().Format(time.RFC3339),
			r.Purpose,
		)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []reservation.Event) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tAT\tTRANSITION\tREASON\tACTOR\tRELATED")
	for _, e := range events {
		from := string(e.From)
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s -> %s\t%s\t%s\t%s\n",
			e.Seq,
			e.At.UTC().Format(time.RFC3339),
			from,
			e.To,
			e.Reason,
			e.Actor,
			e.RelatedID,
		)
	}
	tw.Flush()
}

func printResources(w io.Writer, resources []catalog.Resource) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tMODEL\tGPUS\tHOST\tSTATE")
	for _, r := range resources {
		state := "available"
		if r.Disabled {
			state = "disabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Kind, r.Model, r.GPUs, r.Host, state)
	}
	tw.Flush()
}
