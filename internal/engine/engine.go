// Package engine performs one synchronization pass between a local tree and
// a remote WebDAV folder. The driver configures an Engine, starts a pass,
// and waits for its completion signal.
package engine

import (
	"context"

	"github.com/nordlicht-dev/ocsync/internal/sync/exclude"
)

// Summary counts the work done in one pass.
type Summary struct {
	Uploads       int
	Downloads     int
	LocalDeletes  int
	RemoteDeletes int
	Mkdirs        int
	Skipped       int
	Failed        int
}

// Result is the completion signal of one pass.
type Result struct {
	// Success is false when the pass aborted or any action failed.
	Success bool
	// FollowUpRequired asks the driver for another pass right away,
	// typically because the remote changed while this pass ran.
	FollowUpRequired bool
	// Err carries the abort cause when the pass never got to work.
	Err     error
	Summary Summary
}

// Engine is a single-pass sync engine. Configuration must be complete
// before Start; one Start call performs exactly one pass.
type Engine interface {
	// ExcludedFiles exposes the exclude-pattern registration for this
	// engine instance.
	ExcludedFiles() *exclude.ExcludedFiles
	// SetIgnoreHiddenFiles controls whether dot-files are skipped.
	SetIgnoreHiddenFiles(ignore bool)
	// SetNetworkLimits throttles transfers, in bytes per second per
	// direction. Zero disables the limit.
	SetNetworkLimits(uplimit, downlimit int)
	// Start begins one pass and returns the channel its completion
	// signal is delivered on.
	Start(ctx context.Context) <-chan Result
}
