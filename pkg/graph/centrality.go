package graph

import "math"

// DegreeCentrality is degree / (n-1) per node.
func DegreeCentrality(g *Graph) []float64 {
	n := g.NodeCount()
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	for i := range out {
		out[i] = float64(g.Degree(i)) / float64(n-1)
	}
	return out
}

// Betweenness computes unweighted betweenness centrality with Brandes'
// algorithm, normalized for undirected graphs by 1/((n-1)(n-2)).
func Betweenness(g *Graph) []float64 {
	n := g.NodeCount()
	cb := make([]float64, n)
	if n < 3 {
		return cb
	}

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i], dist[i], delta[i] = 0, -1, 0
			preds[i] = preds[i][:0]
		}
		sigma[s], dist[s] = 1, 0
		stack = stack[:0]
		queue = append(queue[:0], s)

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range g.nbrs[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for k := len(stack) - 1; k >= 0; k-- {
			w := stack[k]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	scale := 1 / float64((n-1)*(n-2))
	for i := range cb {
		cb[i] *= scale
	}
	return cb
}

// Closeness is (n-1) / sum of shortest-path hop distances. Only defined for
// connected graphs.
func Closeness(g *Graph) ([]float64, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, ErrEmpty
	}
	out := make([]float64, n)
	if n == 1 {
		return out, nil
	}
	for s := 0; s < n; s++ {
		dist := bfs(g, s)
		total := 0
		for _, d := range dist {
			if d < 0 {
				return nil, ErrDisconnected
			}
			total += d
		}
		if total > 0 {
			out[s] = float64(n-1) / float64(total)
		}
	}
	return out, nil
}

// Eigenvector runs weighted power iteration on A+I and returns the L2
// normalized principal eigenvector.
func Eigenvector(g *Graph, maxIter int, tol float64) ([]float64, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, ErrEmpty
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	next := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		copy(next, x)
		for i := 0; i < n; i++ {
			for _, j := range g.nbrs[i] {
				next[j] += x[i] * g.weights[i][j]
			}
		}
		norm := 0.0
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return nil, ErrUndefined
		}
		diff := 0.0
		for i := range next {
			next[i] /= norm
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < float64(n)*tol {
			return x, nil
		}
	}
	return nil, ErrNotConverged
}

// PageRank computes weighted PageRank. Dangling nodes spread their rank
// uniformly.
func PageRank(g *Graph, damping float64, maxIter int, tol float64) ([]float64, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, ErrEmpty
	}
	strength := make([]float64, n)
	for i := range strength {
		strength[i] = g.Strength(i)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	next := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		dangling := 0.0
		for i := 0; i < n; i++ {
			if strength[i] == 0 {
				dangling += x[i]
			}
		}
		base := (1-damping)/float64(n) + damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for i := 0; i < n; i++ {
			if strength[i] == 0 {
				continue
			}
			for _, j := range g.nbrs[i] {
				next[j] += damping * x[i] * g.weights[i][j] / strength[i]
			}
		}
		diff := 0.0
		for i := range next {
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < float64(n)*tol {
			return x, nil
		}
	}
	return nil, ErrNotConverged
}
