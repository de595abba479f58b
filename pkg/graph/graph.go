// Package graph provides the in-memory weighted undirected graph used by
// community detection and analytics, together with the algorithms that run
// on it. Nodes are addressed by dense indices; the original entity ids are
// kept alongside.
package graph

import "errors"

var (
	// ErrDisconnected is returned by metrics only defined on connected graphs.
	ErrDisconnected = errors.New("graph is not connected")
	// ErrNotConverged is returned when a power iteration does not converge.
	ErrNotConverged = errors.New("iteration did not converge")
	// ErrTooLarge is returned when a metric is skipped because of graph size.
	ErrTooLarge = errors.New("graph exceeds size limit for this metric")
	// ErrUndefined is returned when a metric has no defined value for the
	// graph (e.g. zero degree variance).
	ErrUndefined = errors.New("metric undefined for this graph")
	// ErrEmpty is returned for graphs without nodes.
	ErrEmpty = errors.New("graph is empty")
)

// Graph is a weighted undirected simple graph. Parallel edges keep the
// larger weight; self loops are ignored. Neighbor lists preserve insertion
// order, so algorithms iterating them are deterministic for a given build
// order.
type Graph struct {
	ids     []string
	index   map[string]int
	nbrs    [][]int
	weights []map[int]float64
	edges   int
}

func New() *Graph {
	return &Graph{index: map[string]int{}}
}

// AddNode adds id if missing and returns its index.
func (g *Graph) AddNode(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.ids)
	g.ids = append(g.ids, id)
	g.index[id] = i
	g.nbrs = append(g.nbrs, nil)
	g.weights = append(g.weights, map[int]float64{})
	return i
}

// AddEdge connects a and b, adding missing nodes. An existing edge keeps
// the maximum of both weights. Returns false for self loops.
func (g *Graph) AddEdge(a, b string, w float64) bool {
	if a == b {
		return false
	}
	i, j := g.AddNode(a), g.AddNode(b)
	if old, ok := g.weights[i][j]; ok {
		if w > old {
			g.weights[i][j] = w
			g.weights[j][i] = w
		}
		return true
	}
	g.weights[i][j] = w
	g.weights[j][i] = w
	g.nbrs[i] = append(g.nbrs[i], j)
	g.nbrs[j] = append(g.nbrs[j], i)
	g.edges++
	return true
}

func (g *Graph) NodeCount() int { return len(g.ids) }

func (g *Graph) EdgeCount() int { return g.edges }

// ID returns the entity id of node i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// IDs returns the entity ids in index order. The slice must not be modified.
func (g *Graph) IDs() []string { return g.ids }

// Index returns the node index of id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors returns the neighbors of i in insertion order. The slice must
// not be modified.
func (g *Graph) Neighbors(i int) []int { return g.nbrs[i] }

// Weight returns the weight of edge (i,j).
func (g *Graph) Weight(i, j int) (float64, bool) {
	w, ok := g.weights[i][j]
	return w, ok
}

func (g *Graph) HasEdge(i, j int) bool {
	_, ok := g.weights[i][j]
	return ok
}

func (g *Graph) Degree(i int) int { return len(g.nbrs[i]) }

// Strength is the weighted degree of i.
func (g *Graph) Strength(i int) float64 {
	var s float64
	for _, j := range g.nbrs[i] {
		s += g.weights[i][j]
	}
	return s
}

// TotalWeight is the sum of all edge weights, each edge counted once.
func (g *Graph) TotalWeight() float64 {
	var total float64
	for i := range g.nbrs {
		for _, j := range g.nbrs[i] {
			if i < j {
				total += g.weights[i][j]
			}
		}
	}
	return total
}

// Edges calls fn once per undirected edge with i < j.
func (g *Graph) Edges(fn func(i, j int, w float64)) {
	for i := range g.nbrs {
		for _, j := range g.nbrs[i] {
			if i < j {
				fn(i, j, g.weights[i][j])
			}
		}
	}
}

// Subgraph returns the subgraph induced by nodes. Node order follows nodes.
func (g *Graph) Subgraph(nodes []int) *Graph {
	sub := New()
	in := make(map[int]struct{}, len(nodes))
	for _, i := range nodes {
		sub.AddNode(g.ids[i])
		in[i] = struct{}{}
	}
	for _, i := range nodes {
		for _, j := range g.nbrs[i] {
			if _, ok := in[j]; ok && i < j {
				sub.AddEdge(g.ids[i], g.ids[j], g.weights[i][j])
			}
		}
	}
	return sub
}

// Density is 2E / (n(n-1)); 0 for graphs with fewer than two nodes.
func (g *Graph) Density() float64 {
	n := g.NodeCount()
	if n < 2 {
		return 0
	}
	return 2 * float64(g.edges) / float64(n*(n-1))
}
