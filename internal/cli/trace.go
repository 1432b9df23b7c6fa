package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	LoadID string
	Kind   string // optional - filter to one log kind
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	LoadID  string            `json:"load_id"`
	Entries []domain.LogEntry `json:"entries"`
	Stats   TraceStats        `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int  `json:"total_entries"`
	OffersSent   int  `json:"offers_sent"`
	Responses    int  `json:"responses"`
	Expired      int  `json:"expired"`
	Rejected     int  `json:"rejected"`
	IsComplete   bool `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <load-id>",
		Short: "Show the execution log for a load",
		Long: `Show every logged transition for a load in sequence order.

The log is append-only: offers sent, responses, expirations, escalations,
rejected commands and the final outcome all appear here.

Examples:
  waterfall trace L-1001
  waterfall trace L-1001 --kind offer_expired
  waterfall trace L-1001 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.LoadID = args[0]
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show entries of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if opts.Kind != "" && !domain.LogKind(opts.Kind).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown log kind %q", opts.Kind))
	}

	// Trace only reads the log; it does not need the specs.
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	entries, err := st.Entries(ctx, opts.LoadID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading execution log", err)
	}

	result := TraceResult{
		LoadID:  opts.LoadID,
		Entries: filterEntries(entries, domain.LogKind(opts.Kind)),
		Stats:   traceStats(entries),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), result)
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No log entries for load: %s\n", opts.LoadID)
		return nil
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

// filterEntries keeps entries of the given kind; an empty kind keeps all.
func filterEntries(entries []domain.LogEntry, kind domain.LogKind) []domain.LogEntry {
	out := []domain.LogEntry{}
	for _, e := range entries {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func traceStats(entries []domain.LogEntry) TraceStats {
	stats := TraceStats{TotalEntries: len(entries)}
	for _, e := range entries {
		switch e.Kind {
		case domain.LogOfferSent:
			stats.OffersSent++
		case domain.LogCarrierResponded:
			stats.Responses++
		case domain.LogOfferExpired:
			stats.Expired++
		case domain.LogResponseRejected, domain.LogCommandRejected:
			stats.Rejected++
		case domain.LogAssignmentCompleted, domain.LogExecutionUnassigned, domain.LogExecutionFailed:
			stats.IsComplete = true
		}
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(w io.Writer, result TraceResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
		LoadID: result.LoadID,
	})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Trace for Load: %s\n", result.LoadID)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Log ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no matching entries)")
	}
	for _, e := range result.Entries {
		fmt.Fprintln(w, "  "+formatEntry(e))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Offers Sent:   %d\n", result.Stats.OffersSent)
	fmt.Fprintf(w, "  Responses:     %d\n", result.Stats.Responses)
	fmt.Fprintf(w, "  Expired:       %d\n", result.Stats.Expired)
	fmt.Fprintf(w, "  Rejected:      %d\n", result.Stats.Rejected)
	return nil
}

// formatEntry renders one log entry on a single line.
func formatEntry(e domain.LogEntry) string {
	line := fmt.Sprintf("[%d] %s %s", e.Seq, e.At.UTC().Format(time.RFC3339), e.Kind)
	if e.TierRank > 0 {
		line += fmt.Sprintf(" tier=%d", e.TierRank)
	}
	if e.CarrierID != "" {
		line += " carrier=" + e.CarrierID
	}
	if e.Detail != "" {
		line += fmt.Sprintf(" %q", e.Detail)
	}
	return line
}

func completeStatus(complete bool) string {
	if complete {
		return "complete"
	}
	return "in progress"
}
