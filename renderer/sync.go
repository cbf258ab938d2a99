package renderer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/coown"
)

// RenderSync renders what a book synchronization did.
func RenderSync(r coown.SyncResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Synchronization\n\n")
	fmt.Fprintf(&b, "%d new operations, %d already known.\n", len(r.Added), r.Duplicates)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Deals\n\n")
		fmt.Fprintln(w, "| Deal | New | Total income |")
		fmt.Fprintln(w, "|:---|:---:|---:|")
		created := make(map[coown.DealID]bool)
		for _, id := range r.Assignment.Created {
			created[id] = true
		}
		for _, res := range r.Incomes {
			isNew := " "
			if created[res.Deal] {
				isNew = "X"
			}
			fmt.Fprintf(w, "| %s | %s | %s |\n", res.Deal, isNew, res.Total().SignedString())
		}
		return len(r.Incomes) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Skipped deals\n\n")
		for _, id := range slices.Sorted(maps.Keys(r.Skipped)) {
			fmt.Fprintf(w, "- %s: %v\n", id, r.Skipped[id])
		}
		return len(r.Skipped) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Dividends without a deal\n\n")
		for _, id := range r.Assignment.Unassigned {
			fmt.Fprintf(w, "- %s\n", id)
		}
		return len(r.Assignment.Unassigned) > 0
	})
	return b.String()
}
