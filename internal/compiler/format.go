package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// FormatTime renders an absolute time, spelling out Infinite.
func FormatTime(t time.Duration) string {
	if t == ir.Infinite {
		return "infinite"
	}
	return t.String()
}

// Format renders a compiled timeline as stable text: one line per node
// window followed by one line per event.
func (g *Graph) Format(t *Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "timeline total=%s events=%d\n", FormatTime(t.TotalDuration), len(t.Events))
	for _, w := range g.Windows() {
		fmt.Fprintf(&b, "window %s [%s, %s]", w.Name, FormatTime(w.Start), FormatTime(w.End))
		if w.LatestParent != NoParent {
			fmt.Fprintf(&b, " after %s", g.nodes[w.LatestParent].Name)
		}
		b.WriteByte('\n')
	}
	for i, e := range t.Events {
		fmt.Fprintf(&b, "event %d %s %s @%s\n", i, e.Kind, g.nodes[e.Node].Name, FormatTime(e.Time))
	}
	for _, c := range t.Cycles {
		fmt.Fprintf(&b, "cycle %s\n", strings.Join(g.names(c), " "))
	}
	return b.String()
}
