package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/engine"
)

// ExecutionView is the CLI rendering of one execution.
type ExecutionView struct {
	LoadID          string      `json:"load_id"`
	ExecutionID     string      `json:"execution_id"`
	WaterfallID     string      `json:"waterfall_id,omitempty"`
	Status          string      `json:"status"`
	Result          string      `json:"result"`
	CurrentTier     int         `json:"current_tier,omitempty"`
	AssignedCarrier string      `json:"assigned_carrier,omitempty"`
	Offers          []OfferView `json:"offers"`
}

// OfferView is the CLI rendering of one offer. TimeRemaining is computed
// at the moment the view is built.
type OfferView struct {
	CarrierID     string    `json:"carrier_id"`
	TierRank      int       `json:"tier_rank"`
	State         string    `json:"state"`
	Deadline      time.Time `json:"deadline"`
	TimeRemaining string    `json:"time_remaining"`
}

// StatusResult is the output of status without a load ID.
type StatusResult struct {
	Counts     map[string]int  `json:"counts"`
	Executions []ExecutionView `json:"executions"`
}

// newExecutionView renders rec at now.
func newExecutionView(ledger *engine.Ledger, rec domain.ExecutionRecord, now time.Time) ExecutionView {
	view := ExecutionView{
		LoadID:          rec.LoadID,
		ExecutionID:     rec.ID,
		WaterfallID:     rec.WaterfallID,
		Status:          rec.Status.String(),
		Result:          rec.Result.String(),
		AssignedCarrier: rec.AssignedCarrier,
		Offers:          make([]OfferView, 0, len(rec.Offers)),
	}
	if rec.WaterfallID != "" {
		if tiers, err := ledger.TiersOf(rec.WaterfallID); err == nil && rec.TierIndex < len(tiers) {
			view.CurrentTier = tiers[rec.TierIndex].Rank
		}
	}
	for _, o := range rec.Offers {
		view.Offers = append(view.Offers, OfferView{
			CarrierID:     o.CarrierID,
			TierRank:      o.TierRank,
			State:         o.State.String(),
			Deadline:      o.Deadline,
			TimeRemaining: o.TimeRemaining(now).Truncate(time.Second).String(),
		})
	}
	return view
}

// writeExecution prints an execution in text form.
func writeExecution(w io.Writer, v ExecutionView) {
	fmt.Fprintf(w, "Load: %s\n", v.LoadID)
	waterfall := v.WaterfallID
	if waterfall == "" {
		waterfall = "(none matched)"
	}
	fmt.Fprintf(w, "Waterfall: %s\n", waterfall)
	fmt.Fprintf(w, "Status: %s", v.Status)
	if v.Status == domain.StatusCompleted.String() {
		fmt.Fprintf(w, " (%s)", v.Result)
	}
	fmt.Fprintln(w)
	if v.CurrentTier > 0 {
		fmt.Fprintf(w, "Tier: %d\n", v.CurrentTier)
	}
	if v.AssignedCarrier != "" {
		fmt.Fprintf(w, "Assigned: %s\n", v.AssignedCarrier)
	}
	if len(v.Offers) == 0 {
		return
	}
	fmt.Fprintln(w, "Offers:")
	for _, o := range v.Offers {
		fmt.Fprintf(w, "  tier %d  %-12s %-9s", o.TierRank, o.CarrierID, o.State)
		if o.State == domain.OfferPending.String() {
			fmt.Fprintf(w, " %s left", o.TimeRemaining)
		}
		fmt.Fprintln(w)
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [load-id]",
		Short: "Show execution status",
		Long: `Show the execution for a load, or every execution when no load is given.

Expired offers are swept first, so the status reflects the current time.

Examples:
  waterfall status L-1001
  waterfall status --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runStatusOne(rootOpts, args[0], cmd)
			}
			return runStatusAll(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatusOne(opts *RootOptions, loadID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := sess.engine.Execution(ctx, loadID)
	if err != nil {
		return engineFailure(formatter, err)
	}

	view := newExecutionView(sess.engine.Ledger(), rec, time.Now())
	if formatter.Format == "json" {
		return formatter.Success(view)
	}
	writeExecution(formatter.Writer, view)
	return nil
}

func runStatusAll(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err := sess.engine.Tick(ctx); err != nil {
		return engineFailure(formatter, err)
	}
	counts, err := sess.store.ExecutionCounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "counting executions", err)
	}

	now := time.Now()
	result := StatusResult{Counts: make(map[string]int, len(counts)), Executions: []ExecutionView{}}
	for status, n := range counts {
		result.Counts[status.String()] = n
	}
	for _, rec := range sess.engine.Executions() {
		result.Executions = append(result.Executions, newExecutionView(sess.engine.Ledger(), rec, now))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Executions) == 0 {
		fmt.Fprintln(w, "No executions")
		return nil
	}
	statuses := make([]string, 0, len(result.Counts))
	for s := range result.Counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "%s: %d\n", s, result.Counts[s])
	}
	fmt.Fprintln(w)
	for _, v := range result.Executions {
		line := fmt.Sprintf("%-12s %-18s %s", v.LoadID, v.Status, v.WaterfallID)
		if v.AssignedCarrier != "" {
			line += " -> " + v.AssignedCarrier
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
