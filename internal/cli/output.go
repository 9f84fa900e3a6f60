package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/nordlicht-dev/ocsync/internal/engine"
)

// printSummary renders the per-run action counts.
func printSummary(w io.Writer, s engine.Summary) {
	fmt.Fprintln(w, "Sync summary:")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Action", "Count"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := []struct {
		label string
		count int
	}{
		{"Uploaded", s.Uploads},
		{"Downloaded", s.Downloads},
		{"Deleted locally", s.LocalDeletes},
		{"Deleted on server", s.RemoteDeletes},
		{"Folders created", s.Mkdirs},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
	}
	for _, row := range rows {
		table.Append([]string{row.label, strconv.Itoa(row.count)})
	}

	table.Render()
}
