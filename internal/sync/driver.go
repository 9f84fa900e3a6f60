package sync

import (
	"context"
	"fmt"

	"github.com/nordlicht-dev/ocsync/internal/engine"
	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/sync/exclude"
	"github.com/nordlicht-dev/ocsync/internal/utils"
)

type State int

const (
	StatePreparing State = iota
	StateRunning
	StateFollowUpRequired
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateRunning:
		return "running"
	case StateFollowUpRequired:
		return "follow-up required"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Driver runs one complete sync of a local directory against a server
// folder. A pass that ends with pending work (the server changed while we
// were writing to it) is re-run until it settles or the retry budget is
// spent.
type Driver struct {
	run    *RunContext
	eng    engine.Engine
	jnl    *journal.Journal
	logger logging.Logger
	state  State
}

func NewDriver(run *RunContext, eng engine.Engine, jnl *journal.Journal, logger logging.Logger) *Driver {
	return &Driver{
		run:    run,
		eng:    eng,
		jnl:    jnl,
		logger: logger,
		state:  StatePreparing,
	}
}

func (d *Driver) State() State {
	return d.state
}

// Run prepares exclude patterns and the selective sync list, then drives
// the engine until the sync settles. The returned result is the one from
// the last engine pass.
func (d *Driver) Run(ctx context.Context) (engine.Result, error) {
	d.state = StatePreparing

	if err := d.prepareExcludes(); err != nil {
		d.state = StateFailed
		return engine.Result{}, err
	}
	if err := d.prepareSelectiveSync(ctx); err != nil {
		d.state = StateFailed
		return engine.Result{}, utils.NewAppError(utils.NewCLIError(utils.ErrCodeJournalError, err.Error()).Build())
	}

	d.eng.SetIgnoreHiddenFiles(d.run.Options.IgnoreHiddenFiles)
	d.eng.SetNetworkLimits(d.run.Options.UpLimit, d.run.Options.DownLimit)

	var res engine.Result
	for pass := 0; ; pass++ {
		d.state = StateRunning
		d.logger.Info("starting sync pass", logging.F("pass", pass+1))

		res = <-d.eng.Start(ctx)
		if res.Err != nil || !res.Success {
			d.state = StateFailed
			return res, d.failure(res)
		}
		if !res.FollowUpRequired {
			break
		}
		if pass >= d.run.Options.MaxSyncRetries {
			d.logger.Warn("another sync is needed but the retry limit was reached, stopping",
				logging.F("passes", pass+1))
			break
		}
		d.state = StateFollowUpRequired
		d.logger.Info("server changed during sync, running another pass")
	}

	d.state = StateDone
	return res, nil
}

func (d *Driver) prepareExcludes() error {
	ex := d.eng.ExcludedFiles()
	ex.AddCandidates(d.run.Options.ExcludeFile, exclude.SystemExcludeFilePath())
	for _, f := range ex.Files() {
		d.logger.Debug("using exclude file", logging.F("path", f))
	}
	if err := ex.Reload(); err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeExcludeUnreadable,
			fmt.Sprintf("cannot load exclude list: %v", err)).Build())
	}
	return nil
}

func (d *Driver) prepareSelectiveSync(ctx context.Context) error {
	if d.run.Options.UnsyncedFolders == "" {
		return nil
	}
	list, err := LoadSelectiveSyncList(d.run.Options.UnsyncedFolders)
	if err != nil {
		d.logger.Warn("cannot read unsynced folders file, ignoring it",
			logging.F("path", d.run.Options.UnsyncedFolders),
			logging.F("error", err.Error()))
		return nil
	}
	// An empty list leaves the stored one alone; clearing the blacklist
	// takes an explicit entry-bearing file, not a blank one.
	if len(list) == 0 {
		return nil
	}
	return ReconcileSelectiveSync(ctx, d.jnl, list, d.logger)
}

func (d *Driver) failure(res engine.Result) error {
	if res.Err != nil {
		if appErr, ok := res.Err.(*utils.AppError); ok {
			return appErr
		}
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeSyncFailed, res.Err.Error()).Build())
	}
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeSyncFailed, "sync did not complete successfully").Build())
}
