package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/snapshot"
	"github.com/roach88/replica/internal/variant"
)

// printStats writes the non-zero counters of a read pass.
func printStats(w io.Writer, st snapshot.ReadStats) {
	fmt.Fprintf(w, "  Entities:   +%d ~%d -%d\n", st.EntitiesCreated, st.EntitiesUpdated, st.EntitiesRemoved)
	fmt.Fprintf(w, "  Components: +%d ~%d replaced %d skipped %d\n",
		st.ComponentsCreated, st.ComponentsUpdated, st.ComponentsReplaced, st.ComponentsSkipped)
	fmt.Fprintf(w, "  Variables:  set %d pruned %d\n", st.VariablesSet, st.VariablesPruned)
	if st.Desynchronized {
		fmt.Fprintln(w, "  WARNING: stream desynchronized, prune skipped")
	}
}

// printNode writes n and its subtree, one line per node and component.
func printNode(w io.Writer, n *scene.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	p := n.Position()
	fmt.Fprintf(w, "%s[%d] %q pos=(%g, %g, %g)", indent, n.ID(), n.Name(), p.X, p.Y, p.Z)
	if !n.Enabled() {
		fmt.Fprint(w, " disabled")
	}
	if n.VarCount() > 0 {
		fmt.Fprintf(w, " vars=%d", n.VarCount())
	}
	fmt.Fprintln(w)

	for _, c := range n.Components() {
		fmt.Fprintf(w, "%s  <%s #%d>", indent, c.Class().Name, c.ID())
		for _, attr := range c.Class().Attributes {
			v, _ := c.Get(attr.Name)
			fmt.Fprintf(w, " %s=%v", attr.Name, variant.Plain(v))
		}
		fmt.Fprintln(w)
	}
	for _, child := range n.Children() {
		printNode(w, child, depth+1)
	}
}
