package graph

import "context"

// PartitionOptions configures community partitioning.
type PartitionOptions struct {
	// Resolution scales the null-model term. Higher values yield more,
	// smaller communities; 0 merges every connected component.
	Resolution float64
	// Seed fixes the node visiting order. Equal seeds on equal input give
	// equal partitions.
	Seed int64
	// MaxLevels bounds the number of aggregation rounds.
	MaxLevels int
}

// GraphAlgorithmProvider is the contract for the graph algorithms the
// engine delegates: partitioning and centralities. Implementations must be
// deterministic for a fixed seed and must not retain g.
//
// Partition returns one community label per node index. Labels are dense,
// starting at 0, numbered in order of first appearance by node index.
type GraphAlgorithmProvider interface {
	Partition(ctx context.Context, g *Graph, opts PartitionOptions) ([]int, error)
	DegreeCentrality(g *Graph) []float64
	Betweenness(g *Graph) []float64
	Closeness(g *Graph) ([]float64, error)
	Eigenvector(g *Graph, maxIter int, tol float64) ([]float64, error)
	PageRank(g *Graph, damping float64, maxIter int, tol float64) ([]float64, error)
}

// Native implements GraphAlgorithmProvider with the algorithms of this
// package.
type Native struct{}

var _ GraphAlgorithmProvider = Native{}

func (Native) Partition(ctx context.Context, g *Graph, opts PartitionOptions) ([]int, error) {
	return Leiden(ctx, g, opts)
}

func (Native) DegreeCentrality(g *Graph) []float64 { return DegreeCentrality(g) }

func (Native) Betweenness(g *Graph) []float64 { return Betweenness(g) }

func (Native) Closeness(g *Graph) ([]float64, error) { return Closeness(g) }

func (Native) Eigenvector(g *Graph, maxIter int, tol float64) ([]float64, error) {
	return Eigenvector(g, maxIter, tol)
}

func (Native) PageRank(g *Graph, damping float64, maxIter int, tol float64) ([]float64, error) {
	return PageRank(g, damping, maxIter, tol)
}
