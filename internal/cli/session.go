package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/waterfall/internal/engine"
	"github.com/roach88/waterfall/internal/notify"
	"github.com/roach88/waterfall/internal/store"
)

// session is an engine restored from the database, ready for one command.
type session struct {
	engine *engine.Engine
	store  *store.Store
}

// openSession compiles the waterfall specs, opens the database and restores
// engine state from it. The caller must Close the session.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	loadResult, loadErrors := LoadWaterfalls(opts.Specs, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, WrapExitError(ExitCommandError, "loading waterfall specs", loadErrors[0])
	}

	ledger, err := engine.NewLedger(loadResult.Waterfalls...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "registering waterfalls", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("opening database %s", opts.Database), err)
	}

	eng := engine.New(ledger,
		engine.WithLog(st),
		engine.WithPersistence(st),
		engine.WithNotifier(notify.NewLogSender(slog.Default())),
		engine.WithSweepInterval(opts.SweepInterval),
	)
	if err := eng.Restore(ctx); err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "restoring engine state", err)
	}
	if overdue, err := st.OverdueOffers(ctx, engine.SystemTime{}.Now()); err != nil {
		slog.Warn("checking overdue offers", "error", err)
	} else if len(overdue) > 0 {
		// The first sweep of each execution expires them.
		slog.Info("offers overdue since last run", "count", len(overdue), "oldest_deadline", overdue[0].Deadline)
	}

	slog.Debug("session opened",
		"db", opts.Database,
		"specs", opts.Specs,
		"waterfalls", len(loadResult.Waterfalls),
	)
	return &session{engine: eng, store: st}, nil
}

// Close releases the database.
func (s *session) Close() error {
	return s.store.Close()
}

// errorDetails is the JSON form of an engine error's context.
type errorDetails struct {
	LoadID    string `json:"load_id,omitempty"`
	OfferID   string `json:"offer_id,omitempty"`
	CarrierID string `json:"carrier_id,omitempty"`
}

// engineFailure reports an engine error in the configured format and maps
// it to an exit code. Rejected commands exit 1; anything that is not an
// engine error (database, I/O) exits 2.
func engineFailure(formatter *OutputFormatter, err error) error {
	var ee *engine.Error
	if errors.As(err, &ee) {
		_ = formatter.Error(string(ee.Code), ee.Message, errorDetails{
			LoadID:    ee.LoadID,
			OfferID:   ee.OfferID,
			CarrierID: ee.CarrierID,
		})
		return WrapExitError(ExitFailure, string(ee.Code), err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
