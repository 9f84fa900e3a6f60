package sync

import (
	"github.com/nordlicht-dev/ocsync/internal/ocs"
	"github.com/nordlicht-dev/ocsync/internal/options"
)

// RunContext is the immutable bundle for one sync run, built once after the
// server bootstrap. Every retry pass reuses the same context unmodified.
type RunContext struct {
	Options *options.Options
	Account *ocs.Account
	// Folder is the remote folder below the dav root, starting with "/".
	Folder string
	// User is the resolved login name the journal is keyed by.
	User string
}
