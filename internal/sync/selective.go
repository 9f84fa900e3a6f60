package sync

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/pathset"
)

// ParseSelectiveSyncList reads one server folder per line. Blank lines and
// lines starting with # are ignored, and every entry is normalized to carry
// a trailing slash so journal comparisons are exact.
func ParseSelectiveSyncList(r io.Reader) []string {
	var list []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasSuffix(line, "/") {
			line += "/"
		}
		list = append(list, line)
	}
	return list
}

func LoadSelectiveSyncList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSelectiveSyncList(f), nil
}

// ReconcileSelectiveSync replaces the journal's ignore list with newList.
// Every folder that enters or leaves the list is scheduled for remote
// rediscovery so the next pass picks up the change. If the journal cannot
// be read the stored list is left untouched.
func ReconcileSelectiveSync(ctx context.Context, jnl *journal.Journal, newList []string, logger logging.Logger) error {
	oldList, err := jnl.SelectiveSyncList(ctx, journal.SelectiveSyncBlackList)
	if err != nil {
		logger.Warn("could not read selective sync list from journal, leaving it unchanged",
			logging.F("error", err.Error()))
		return nil
	}

	changed := pathset.SymmetricDifference(pathset.New(oldList...), pathset.New(newList...))
	for _, p := range changed.Values() {
		logger.Debug("selective sync change, scheduling rediscovery", logging.F("path", p))
		if err := jnl.SchedulePathForRemoteDiscovery(ctx, p); err != nil {
			return err
		}
	}

	return jnl.SetSelectiveSyncList(ctx, journal.SelectiveSyncBlackList, newList)
}
