package sync

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/logging"
)

func TestParseSelectiveSyncList(t *testing.T) {
	input := "# comment\n\nDocuments\nShared/\n"
	got := ParseSelectiveSyncList(strings.NewReader(input))
	want := []string{"Documents/", "Shared/"}
	if len(got) != len(want) {
		t.Fatalf("ParseSelectiveSyncList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseSelectiveSyncListEmpty(t *testing.T) {
	got := ParseSelectiveSyncList(strings.NewReader("# only comments\n\n"))
	if len(got) != 0 {
		t.Errorf("ParseSelectiveSyncList() = %v, want empty", got)
	}
}

func openTestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	jnl, err := journal.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { jnl.Close() })
	return jnl
}

func TestReconcileSelectiveSync(t *testing.T) {
	ctx := context.Background()
	jnl := openTestJournal(t)

	if err := jnl.SetSelectiveSyncList(ctx, journal.SelectiveSyncBlackList, []string{"A/", "B/"}); err != nil {
		t.Fatalf("SetSelectiveSyncList() error = %v", err)
	}
	for _, e := range []journal.Entry{
		{Path: "A/x.txt", Etag: "e1"},
		{Path: "B/y.txt", Etag: "e2"},
		{Path: "C/z.txt", Etag: "e3"},
	} {
		if err := jnl.SaveEntry(ctx, e); err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}
	}

	err := ReconcileSelectiveSync(ctx, jnl, []string{"B/", "C/"}, logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("ReconcileSelectiveSync() error = %v", err)
	}

	list, err := jnl.SelectiveSyncList(ctx, journal.SelectiveSyncBlackList)
	if err != nil {
		t.Fatalf("SelectiveSyncList() error = %v", err)
	}
	sort.Strings(list)
	if len(list) != 2 || list[0] != "B/" || list[1] != "C/" {
		t.Errorf("stored list = %v, want [B/ C/]", list)
	}

	entries, err := jnl.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if entries["A/x.txt"].Etag != journal.EtagInvalid {
		t.Error("A left the list, its entries should be scheduled for rediscovery")
	}
	if entries["C/z.txt"].Etag != journal.EtagInvalid {
		t.Error("C entered the list, its entries should be scheduled for rediscovery")
	}
	if entries["B/y.txt"].Etag != "e2" {
		t.Errorf("B stayed on the list, etag = %q, want e2", entries["B/y.txt"].Etag)
	}
}

func TestReconcileSelectiveSyncNoChange(t *testing.T) {
	ctx := context.Background()
	jnl := openTestJournal(t)

	if err := jnl.SetSelectiveSyncList(ctx, journal.SelectiveSyncBlackList, []string{"A/"}); err != nil {
		t.Fatalf("SetSelectiveSyncList() error = %v", err)
	}
	if err := jnl.SaveEntry(ctx, journal.Entry{Path: "A/x.txt", Etag: "e1"}); err != nil {
		t.Fatalf("SaveEntry() error = %v", err)
	}

	if err := ReconcileSelectiveSync(ctx, jnl, []string{"A/"}, logging.NewNoOpLogger()); err != nil {
		t.Fatalf("ReconcileSelectiveSync() error = %v", err)
	}

	entries, err := jnl.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if entries["A/x.txt"].Etag != "e1" {
		t.Errorf("unchanged list must not invalidate entries, etag = %q", entries["A/x.txt"].Etag)
	}
}
