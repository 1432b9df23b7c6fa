package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
)

// TickResult is the output of the tick command.
type TickResult struct {
	Expired int `json:"expired"`
}

// RetireResult is the output of the retire command.
type RetireResult struct {
	WaterfallID string `json:"waterfall_id"`
	Status      string `json:"status"`
}

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Expire overdue offers and escalate",
		Long: `Sweep every execution for offers past their deadline.

Expired offers may exhaust a tier, which escalates the load to the next tier
or completes it unassigned. Run this from cron when the engine is not
running continuously.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			formatter := newFormatter(rootOpts, cmd)

			sess, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			n, err := sess.engine.Tick(ctx)
			if err != nil {
				return engineFailure(formatter, err)
			}
			if formatter.Format == "json" {
				return formatter.Success(TickResult{Expired: n})
			}
			fmt.Fprintf(formatter.Writer, "Expired %d offer(s)\n", n)
			return nil
		},
	}
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <load-id>",
		Short: "Pause a load's waterfall",
		Long: `Suspend escalation for a load.

Offers already sent stay live: carriers may still respond and deadlines still
pass, but no tier is activated and no assignment is made until resume.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(rootOpts, cmd, args[0], func(s *session, ctx context.Context, id string) (domain.ExecutionRecord, error) {
				return s.engine.Pause(ctx, id)
			})
		},
	}
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <load-id>",
		Short: "Resume a paused waterfall",
		Long: `Resume a paused load and re-evaluate its current tier.

Responses and expirations recorded while paused take effect now. Offers are
never sent twice.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(rootOpts, cmd, args[0], func(s *session, ctx context.Context, id string) (domain.ExecutionRecord, error) {
				return s.engine.Resume(ctx, id)
			})
		},
	}
}

func runLifecycle(opts *RootOptions, cmd *cobra.Command, loadID string,
	apply func(*session, context.Context, string) (domain.ExecutionRecord, error)) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := apply(sess, ctx, loadID)
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

// NewRetireCommand creates the retire command.
func NewRetireCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retire <waterfall-id>",
		Short: "Retire a waterfall",
		Long: `Retire a waterfall so new loads no longer match it.

Executions already running on the waterfall continue to completion. The
retired status is stored in the database and survives restarts.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			formatter := newFormatter(rootOpts, cmd)

			sess, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.engine.RetireWaterfall(ctx, args[0]); err != nil {
				return engineFailure(formatter, err)
			}
			result := RetireResult{WaterfallID: args[0], Status: domain.WaterfallRetired.String()}
			if formatter.Format == "json" {
				return formatter.Success(result)
			}
			fmt.Fprintf(formatter.Writer, "Waterfall %s retired\n", result.WaterfallID)
			return nil
		},
	}
}
