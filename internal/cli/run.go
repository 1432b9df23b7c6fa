package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Stdin reads JSON-line commands from standard input and stops the
	// engine at end of input.
	Stdin bool
}

// Command is one JSON line accepted by run --stdin.
//
//	{"type":"start_load","load":{"id":"L1","origin_zip":"60601","destination_zip":"30301","equipment_type":"dry_van"}}
//	{"type":"response","load_id":"L1","carrier_id":"acme","tier":1,"outcome":"accept"}
//	{"type":"pause","load_id":"L1"}
//	{"type":"resume","load_id":"L1"}
//	{"type":"tick"}
//
// A response names its offer either by offer_id or by load_id, carrier_id
// and tier; offer IDs are derived from those three.
type Command struct {
	Type      string      `json:"type"`
	Load      domain.Load `json:"load"`
	LoadID    string      `json:"load_id"`
	CarrierID string      `json:"carrier_id"`
	Tier      int         `json:"tier"`
	OfferID   string      `json:"offer_id"`
	Outcome   string      `json:"outcome"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine continuously",
		Long: `Run the waterfall engine until interrupted.

The engine restores executions from the database, then sweeps for expired
offers every sweep interval. With --stdin it also applies JSON-line commands
read from standard input, in order, and exits once input ends and every
command has been applied.

Example:
  waterfall run --db ./waterfall.db --specs ./specs
  waterfall run --stdin < commands.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.SweepInterval, "sweep-interval", 0, "how often to expire overdue offers (default $WATERFALL_SWEEP_INTERVAL)")
	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read JSON-line commands from stdin")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	if opts.Stdin {
		go func() {
			n, err := feedCommands(cmd.InOrStdin(), sess.engine)
			if err != nil {
				slog.Error("reading commands", "error", err)
			}
			slog.Info("input finished", "commands", n)
			sess.engine.Stop()
		}()
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Press Ctrl-C to stop.")
	}

	if err := sess.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// feedCommands enqueues every command read from r and returns how many were
// queued. Blank lines and lines starting with # are skipped; malformed lines
// are logged and skipped.
func feedCommands(r io.Reader, eng *engine.Engine) (int, error) {
	scanner := bufio.NewScanner(r)
	queued := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ev, err := ParseCommand([]byte(text))
		if err != nil {
			slog.Warn("skipping command", "line", line, "error", err)
			continue
		}
		if !eng.Enqueue(ev) {
			return queued, errors.New("engine stopped before input ended")
		}
		queued++
	}
	return queued, scanner.Err()
}

// ParseCommand decodes one JSON command into an engine event.
func ParseCommand(data []byte) (engine.Event, error) {
	var c Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return engine.Event{}, fmt.Errorf("decode command: %w", err)
	}

	switch c.Type {
	case "start_load":
		if strings.TrimSpace(c.Load.ID) == "" {
			return engine.Event{}, errors.New("start_load: load.id is required")
		}
		return engine.Event{Type: engine.EventStartLoad, Load: c.Load}, nil

	case "response":
		outcome, err := domain.ParseOutcome(c.Outcome)
		if err != nil {
			return engine.Event{}, fmt.Errorf("response: %w", err)
		}
		offerID := c.OfferID
		if offerID == "" {
			if c.LoadID == "" || c.CarrierID == "" || c.Tier < 1 {
				return engine.Event{}, errors.New("response: offer_id or load_id, carrier_id and tier are required")
			}
			if offerID, err = domain.OfferID(c.LoadID, c.CarrierID, c.Tier); err != nil {
				return engine.Event{}, fmt.Errorf("response: %w", err)
			}
		}
		return engine.Event{Type: engine.EventResponse, OfferID: offerID, Outcome: outcome}, nil

	case "pause", "resume":
		if c.LoadID == "" {
			return engine.Event{}, fmt.Errorf("%s: load_id is required", c.Type)
		}
		t := engine.EventPause
		if c.Type == "resume" {
			t = engine.EventResume
		}
		return engine.Event{Type: t, LoadID: c.LoadID}, nil

	case "tick":
		return engine.Event{Type: engine.EventTick}, nil

	default:
		return engine.Event{}, fmt.Errorf("unknown command type %q", c.Type)
	}
}
