package analytics

import "fmt"

// Highlights renders the headline numbers of b as short sentences for run
// reports and the CLI.
func (b Bundle) Highlights() []string {
	out := []string{
		fmt.Sprintf("%d entities and %d relationships (density %.3f, %d components)",
			b.Basic.Nodes, b.Basic.Edges, b.Basic.Density, b.Basic.Components),
	}
	if d := b.Centrality.Degree; d != nil && len(d.Top) > 0 {
		out = append(out, fmt.Sprintf("most connected entity: %s (degree centrality %.3f)", d.Top[0].Text, d.Top[0].Score))
	}
	if p := b.Centrality.PageRank; p != nil && len(p.Top) > 0 {
		out = append(out, fmt.Sprintf("most influential entity: %s (pagerank %.3f)", p.Top[0].Text, p.Top[0].Score))
	}
	if b.Community.Count > 0 {
		out = append(out, fmt.Sprintf("%d communities covering %.0f%% of entities (mean coherence %.2f)",
			b.Community.Count, b.Community.Coverage*100, b.Community.MeanCoherence))
	}
	if b.Connectivity.BridgeCount > 0 {
		out = append(out, fmt.Sprintf("%d bridges and %d articulation points", b.Connectivity.BridgeCount, b.Connectivity.ArticulationCount))
	}
	out = append(out, fmt.Sprintf("quality %s (%.2f)", b.Quality.Grade, b.Quality.Overall))
	return out
}
