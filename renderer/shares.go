package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/coown"
)

// RenderShares renders the shares of each trade, and the trades whose shares
// do not sum to 100%.
func RenderShares(rows []coown.Share, incomplete []coown.OperationID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Shares\n\n")
	fmt.Fprintln(&b, "| Operation | Co-owner | Share |")
	fmt.Fprintln(&b, "|:---|:---|---:|")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.Operation, r.CoOwner, r.Value.Percent())
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Incomplete\n\n")
		for _, id := range incomplete {
			fmt.Fprintf(w, "- %s\n", id)
		}
		return len(incomplete) > 0
	})
	return b.String()
}
