package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
)

// RespondOptions holds flags for the respond command.
type RespondOptions struct {
	*RootOptions
	LoadID    string
	CarrierID string
	Outcome   string
}

// RespondResult is the output of the respond command.
type RespondResult struct {
	Offer     OfferView     `json:"offer"`
	Execution ExecutionView `json:"execution"`
}

// NewRespondCommand creates the respond command.
func NewRespondCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RespondOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Record a carrier's answer to an offer",
		Long: `Record a carrier's accept or decline for a load.

A response after the offer's deadline is rejected as stale and leaves the
execution unchanged. The first accept assigns the load and cancels every
other pending offer.

Examples:
  waterfall respond --load L-1001 --carrier acme --outcome accept
  waterfall respond --load L-1001 --carrier swift --outcome decline`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRespond(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LoadID, "load", "", "load ID (required)")
	_ = cmd.MarkFlagRequired("load")
	cmd.Flags().StringVar(&opts.CarrierID, "carrier", "", "carrier ID (required)")
	_ = cmd.MarkFlagRequired("carrier")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "accept or decline (required)")
	_ = cmd.MarkFlagRequired("outcome")

	return cmd
}

func runRespond(opts *RespondOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	outcome, err := domain.ParseOutcome(opts.Outcome)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --outcome", err)
	}

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := sess.engine.Execution(ctx, opts.LoadID)
	if err != nil {
		return engineFailure(formatter, err)
	}
	offer, ok := rec.OfferFor(opts.CarrierID)
	if !ok {
		_ = formatter.Error("NOT_FOUND", fmt.Sprintf("carrier %s holds no offer for load %s", opts.CarrierID, opts.LoadID), nil)
		return NewExitError(ExitFailure, "offer not found")
	}

	updated, err := sess.engine.RecordResponse(ctx, offer.ID, outcome)
	if err != nil {
		return engineFailure(formatter, err)
	}

	// Re-read: the response may have completed or escalated the execution.
	rec, err = sess.engine.Execution(ctx, opts.LoadID)
	if err != nil {
		return engineFailure(formatter, err)
	}

	now := time.Now()
	view := newExecutionView(sess.engine.Ledger(), rec, now)
	if formatter.Format == "json" {
		return formatter.Success(RespondResult{
			Offer: OfferView{
				CarrierID:     updated.CarrierID,
				TierRank:      updated.TierRank,
				State:         updated.State.String(),
				Deadline:      updated.Deadline,
				TimeRemaining: updated.TimeRemaining(now).Truncate(time.Second).String(),
			},
			Execution: view,
		})
	}
	fmt.Fprintf(formatter.Writer, "Recorded %s from %s\n\n", outcome, updated.CarrierID)
	writeExecution(formatter.Writer, view)
	return nil
}
