// Package tableutil configures the escape-aware tabwriter behind every
// tabular view.
package tableutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/liggitt/tabwriter"
)

// New returns a tabwriter tuned for lantern tables. Escape brackets are
// stripped after sizing, so colored cells still align.
func New(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.StripEscape)
}

// Headers writes the header row unless suppressed.
func Headers(w io.Writer, suppress bool, cells ...string) error {
	if suppress {
		return nil
	}
	return Row(w, cells...)
}

// Row writes one tab-separated table row.
func Row(w io.Writer, cells ...string) error {
	_, err := fmt.Fprintln(w, strings.Join(cells, "\t"))
	return err
}
