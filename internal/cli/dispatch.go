package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	LoadID         string
	OriginZip      string
	DestinationZip string
	EquipmentType  string
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Start the waterfall for a load",
		Long: `Start a waterfall execution for a load.

The load is matched to the waterfall serving its lane and tier 1 carriers are
offered the load. If no waterfall serves the lane the execution stays idle
until one is added to the specs.

Examples:
  waterfall dispatch --load L-1001 --origin 60601 --dest 30301 --equipment dry_van`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LoadID, "load", "", "load ID (required)")
	_ = cmd.MarkFlagRequired("load")
	cmd.Flags().StringVar(&opts.OriginZip, "origin", "", "origin zip code (required)")
	_ = cmd.MarkFlagRequired("origin")
	cmd.Flags().StringVar(&opts.DestinationZip, "dest", "", "destination zip code (required)")
	_ = cmd.MarkFlagRequired("dest")
	cmd.Flags().StringVar(&opts.EquipmentType, "equipment", "", "equipment type (required)")
	_ = cmd.MarkFlagRequired("equipment")

	return cmd
}

func runDispatch(opts *DispatchOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	load := domain.Load{
		ID:             strings.TrimSpace(opts.LoadID),
		OriginZip:      opts.OriginZip,
		DestinationZip: opts.DestinationZip,
		EquipmentType:  opts.EquipmentType,
	}
	formatter.VerboseLog("Dispatching load %s on lane %s -> %s (%s)",
		load.ID, load.OriginZip, load.DestinationZip, load.EquipmentType)

	rec, err := sess.engine.StartLoad(ctx, load)
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
