package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nordlicht-dev/ocsync/internal/journal"
)

func findAction(actions []action, typ actionType, path string) bool {
	for _, a := range actions {
		if a.typ == typ && a.path == path {
			return true
		}
	}
	return false
}

func TestPlanNewAndDeletedFiles(t *testing.T) {
	local := map[string]localEntry{
		"new_local.txt":  {Path: "new_local.txt", Size: 3, MTime: 100},
		"gone_remote.txt": {Path: "gone_remote.txt", Size: 4, MTime: 100},
	}
	remote := map[string]remoteEntry{
		"new_remote.txt": {Path: "new_remote.txt", Size: 5, Etag: "r1"},
		"gone_local.txt": {Path: "gone_local.txt", Size: 6, Etag: "r2"},
	}
	prev := map[string]journal.Entry{
		"gone_remote.txt": {Path: "gone_remote.txt", Etag: "e1", LocalMTime: 100, LocalSize: 4},
		"gone_local.txt":  {Path: "gone_local.txt", Etag: "r2", LocalMTime: 100, LocalSize: 6},
	}

	actions, skipped := plan(local, remote, prev)

	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	if !findAction(actions, actionUpload, "new_local.txt") {
		t.Error("new local file should upload")
	}
	if !findAction(actions, actionDownload, "new_remote.txt") {
		t.Error("new remote file should download")
	}
	if !findAction(actions, actionDeleteLocal, "gone_remote.txt") {
		t.Error("file deleted on server should be deleted locally")
	}
	if !findAction(actions, actionDeleteRemote, "gone_local.txt") {
		t.Error("file deleted locally should be deleted on server")
	}
}

func TestPlanChangeDetection(t *testing.T) {
	baseline := journal.Entry{Path: "a.txt", Etag: "e1", LocalMTime: 100, LocalSize: 10}
	invalidated := baseline
	invalidated.Etag = journal.EtagInvalid

	tests := []struct {
		name     string
		local    localEntry
		remote   remoteEntry
		prev     journal.Entry
		wantType actionType
		wantSkip bool
		wantNone bool
	}{
		{
			name:     "local change uploads",
			local:    localEntry{Path: "a.txt", Size: 12, MTime: 200},
			remote:   remoteEntry{Path: "a.txt", Size: 10, Etag: "e1"},
			prev:     baseline,
			wantType: actionUpload,
		},
		{
			name:     "remote change downloads",
			local:    localEntry{Path: "a.txt", Size: 10, MTime: 100},
			remote:   remoteEntry{Path: "a.txt", Size: 11, Etag: "e2"},
			prev:     baseline,
			wantType: actionDownload,
		},
		{
			name:     "invalidated etag forces download",
			local:    localEntry{Path: "a.txt", Size: 10, MTime: 100},
			remote:   remoteEntry{Path: "a.txt", Size: 10, Etag: "e1"},
			prev:     invalidated,
			wantType: actionDownload,
		},
		{
			name:     "both changed is skipped",
			local:    localEntry{Path: "a.txt", Size: 12, MTime: 200},
			remote:   remoteEntry{Path: "a.txt", Size: 11, Etag: "e2"},
			prev:     baseline,
			wantSkip: true,
		},
		{
			name:     "unchanged does nothing",
			local:    localEntry{Path: "a.txt", Size: 10, MTime: 100},
			remote:   remoteEntry{Path: "a.txt", Size: 10, Etag: "e1"},
			prev:     baseline,
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, skipped := plan(
				map[string]localEntry{"a.txt": tt.local},
				map[string]remoteEntry{"a.txt": tt.remote},
				map[string]journal.Entry{"a.txt": tt.prev},
			)

			if tt.wantSkip {
				if len(skipped) != 1 || skipped[0] != "a.txt" {
					t.Errorf("skipped = %v, want [a.txt]", skipped)
				}
				return
			}
			if tt.wantNone {
				if len(actions) != 0 || len(skipped) != 0 {
					t.Errorf("actions = %v, skipped = %v, want none", actions, skipped)
				}
				return
			}
			if len(actions) != 1 || actions[0].typ != tt.wantType {
				t.Errorf("actions = %v, want single action of type %d", actions, tt.wantType)
			}
		})
	}
}

func TestPlanWithoutBaselineAdoptsIdenticalFiles(t *testing.T) {
	local := map[string]localEntry{
		"same.txt": {Path: "same.txt", Size: 10, MTime: 100},
		"diff.txt": {Path: "diff.txt", Size: 10, MTime: 100},
	}
	remote := map[string]remoteEntry{
		"same.txt": {Path: "same.txt", Size: 10, Etag: "e1"},
		"diff.txt": {Path: "diff.txt", Size: 20, Etag: "e2"},
	}

	actions, skipped := plan(local, remote, nil)

	if !findAction(actions, actionRecord, "same.txt") {
		t.Error("equal-size file without baseline should be recorded")
	}
	if len(skipped) != 1 || skipped[0] != "diff.txt" {
		t.Errorf("skipped = %v, want [diff.txt]", skipped)
	}
}

func TestPlanDirectories(t *testing.T) {
	local := map[string]localEntry{
		"newdir": {Path: "newdir", IsDir: true},
	}
	remote := map[string]remoteEntry{
		"remotedir": {Path: "remotedir", IsDir: true, Etag: "d1"},
	}

	actions, _ := plan(local, remote, nil)

	if !findAction(actions, actionMkdirRemote, "newdir") {
		t.Error("new local dir should be created remotely")
	}
	if !findAction(actions, actionMkdirLocal, "remotedir") {
		t.Error("new remote dir should be created locally")
	}
}

func TestPlanTypeMismatchSkipped(t *testing.T) {
	local := map[string]localEntry{"x": {Path: "x", IsDir: true}}
	remote := map[string]remoteEntry{"x": {Path: "x", Size: 3, Etag: "e"}}

	actions, skipped := plan(local, remote, nil)
	if len(actions) != 0 {
		t.Errorf("actions = %v, want none", actions)
	}
	if len(skipped) != 1 || skipped[0] != "x" {
		t.Errorf("skipped = %v, want [x]", skipped)
	}
}

func TestSortActionsOrdering(t *testing.T) {
	actions := []action{
		{actionDeleteRemote, "a"},
		{actionUpload, "dir/sub/file.txt"},
		{actionDeleteLocal, "dir/sub/deep.txt"},
		{actionMkdirRemote, "dir/sub"},
		{actionMkdirRemote, "dir"},
	}
	sortActions(actions)

	if actions[0].path != "dir" || actions[1].path != "dir/sub" {
		t.Errorf("mkdirs not shallow-first: %v", actions)
	}
	if actions[2].typ != actionUpload {
		t.Errorf("transfers should follow mkdirs: %v", actions)
	}
	if actions[3].path != "dir/sub/deep.txt" || actions[4].path != "a" {
		t.Errorf("deletes not deep-first: %v", actions)
	}
}

func TestIsBlacklisted(t *testing.T) {
	blacklist := []string{"Documents/", "Shared/Team/"}

	tests := []struct {
		rel  string
		want bool
	}{
		{"Documents", true},
		{"Documents/report.txt", true},
		{"DocumentsOld", false},
		{"Shared", false},
		{"Shared/Team", true},
		{"Shared/Team/notes.md", true},
		{"Photos", false},
	}
	for _, tt := range tests {
		if got := isBlacklisted(tt.rel, blacklist); got != tt.want {
			t.Errorf("isBlacklisted(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestLimitedReaderPassthrough(t *testing.T) {
	src := strings.NewReader("hello world")

	r := newLimitedReader(context.Background(), src, 0)
	if r != src {
		t.Error("zero limit should return the reader unchanged")
	}

	limited := newLimitedReader(context.Background(), strings.NewReader("hello world"), 1<<20)
	var buf bytes.Buffer
	if _, err := copyStream(&buf, limited); err != nil {
		t.Fatalf("copyStream() error = %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("copied %q", buf.String())
	}
}
