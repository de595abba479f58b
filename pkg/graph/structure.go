package graph

import "math"

// bfs returns hop distances from s, -1 for unreachable nodes.
func bfs(g *Graph, s int) []int {
	dist := make([]int, g.NodeCount())
	for i := range dist {
		dist[i] = -1
	}
	dist[s] = 0
	queue := []int{s}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for _, w := range g.nbrs[v] {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}

// Components returns the connected components ordered by their smallest
// node index; nodes inside a component are in BFS order.
func Components(g *Graph) [][]int {
	n := g.NodeCount()
	seen := make([]bool, n)
	var comps [][]int
	for s := 0; s < n; s++ {
		if seen[s] {
			continue
		}
		seen[s] = true
		comp := []int{s}
		for head := 0; head < len(comp); head++ {
			for _, w := range g.nbrs[comp[head]] {
				if !seen[w] {
					seen[w] = true
					comp = append(comp, w)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

func IsConnected(g *Graph) bool {
	return g.NodeCount() > 0 && len(Components(g)) == 1
}

// Eccentricities returns the maximum hop distance from every node.
func Eccentricities(g *Graph) ([]int, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, ErrEmpty
	}
	ecc := make([]int, n)
	for s := 0; s < n; s++ {
		for _, d := range bfs(g, s) {
			if d < 0 {
				return nil, ErrDisconnected
			}
			ecc[s] = max(ecc[s], d)
		}
	}
	return ecc, nil
}

// DiameterRadius returns the largest and smallest eccentricity.
func DiameterRadius(g *Graph) (diameter, radius int, err error) {
	ecc, err := Eccentricities(g)
	if err != nil {
		return 0, 0, err
	}
	radius = math.MaxInt
	for _, e := range ecc {
		diameter = max(diameter, e)
		radius = min(radius, e)
	}
	return diameter, radius, nil
}

// triangles returns, per node, the number of edges among its neighbors.
func triangles(g *Graph) []int {
	t := make([]int, g.NodeCount())
	for v := range t {
		nb := g.nbrs[v]
		for a := 0; a < len(nb); a++ {
			for b := a + 1; b < len(nb); b++ {
				if g.HasEdge(nb[a], nb[b]) {
					t[v]++
				}
			}
		}
	}
	return t
}

// Clustering returns the unweighted local clustering coefficient per node.
func Clustering(g *Graph) []float64 {
	t := triangles(g)
	out := make([]float64, len(t))
	for v := range t {
		d := g.Degree(v)
		if d < 2 {
			continue
		}
		out[v] = 2 * float64(t[v]) / float64(d*(d-1))
	}
	return out
}

// AverageClustering is the mean local clustering coefficient.
func AverageClustering(g *Graph) float64 {
	c := Clustering(g)
	if len(c) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c {
		sum += v
	}
	return sum / float64(len(c))
}

// Transitivity is 3 * triangles / connected triples.
func Transitivity(g *Graph) float64 {
	t := triangles(g)
	var closed, triples float64
	for v := range t {
		d := g.Degree(v)
		closed += float64(t[v])
		triples += float64(d*(d-1)) / 2
	}
	if triples == 0 {
		return 0
	}
	return closed / triples
}

// BridgesAndArticulationPoints finds cut edges and cut vertices with
// Tarjan's low-link DFS. Bridges are returned as node index pairs.
func BridgesAndArticulationPoints(g *Graph) (bridges [][2]int, points []int) {
	n := g.NodeCount()
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	isPoint := make([]bool, n)
	timer := 0

	var dfs func(u, parent int)
	dfs = func(u, parent int) {
		disc[u] = timer
		low[u] = timer
		timer++
		children := 0
		for _, v := range g.nbrs[u] {
			if v == parent {
				continue
			}
			if disc[v] >= 0 {
				low[u] = min(low[u], disc[v])
				continue
			}
			children++
			dfs(v, u)
			low[u] = min(low[u], low[v])
			if low[v] > disc[u] {
				bridges = append(bridges, [2]int{min(u, v), max(u, v)})
			}
			if parent >= 0 && low[v] >= disc[u] {
				isPoint[u] = true
			}
		}
		if parent < 0 && children > 1 {
			isPoint[u] = true
		}
	}

	for s := 0; s < n; s++ {
		if disc[s] < 0 {
			dfs(s, -1)
		}
	}
	for i, p := range isPoint {
		if p {
			points = append(points, i)
		}
	}
	return bridges, points
}

// DegreeAssortativity is the Pearson correlation of the degrees at both
// ends of every edge.
func DegreeAssortativity(g *Graph) (float64, error) {
	if g.EdgeCount() <= 2 {
		return 0, ErrUndefined
	}
	var sx, sxx, sxy, count float64
	g.Edges(func(i, j int, _ float64) {
		a, b := float64(g.Degree(i)), float64(g.Degree(j))
		// Each edge contributes both orientations, so x and y share moments.
		sx += a + b
		sxx += a*a + b*b
		sxy += 2 * a * b
		count += 2
	})
	mean := sx / count
	variance := sxx/count - mean*mean
	if variance <= 1e-12 {
		return 0, ErrUndefined
	}
	return (sxy/count - mean*mean) / variance, nil
}

// EdgeConnectivity is the minimum number of edges whose removal
// disconnects g.
func EdgeConnectivity(g *Graph) (int, error) {
	n := g.NodeCount()
	if n == 0 {
		return 0, ErrEmpty
	}
	if !IsConnected(g) {
		return 0, ErrDisconnected
	}
	if n == 1 {
		return 0, nil
	}
	best := math.MaxInt
	for t := 1; t < n; t++ {
		net := newFlowNetwork(n)
		g.Edges(func(i, j int, _ float64) {
			net.addArc(i, j, 1)
			net.addArc(j, i, 1)
		})
		best = min(best, net.maxFlow(0, t))
	}
	return best, nil
}

// NodeConnectivity is the minimum number of nodes whose removal
// disconnects g (n-1 for complete graphs).
func NodeConnectivity(g *Graph) (int, error) {
	n := g.NodeCount()
	if n == 0 {
		return 0, ErrEmpty
	}
	if !IsConnected(g) {
		return 0, ErrDisconnected
	}

	v := 0
	for i := 1; i < n; i++ {
		if g.Degree(i) < g.Degree(v) {
			v = i
		}
	}
	best := g.Degree(v)
	for w := 0; w < n; w++ {
		if w != v && !g.HasEdge(v, w) {
			best = min(best, localNodeConnectivity(g, v, w))
		}
	}
	nb := g.nbrs[v]
	for a := 0; a < len(nb); a++ {
		for b := a + 1; b < len(nb); b++ {
			if !g.HasEdge(nb[a], nb[b]) {
				best = min(best, localNodeConnectivity(g, nb[a], nb[b]))
			}
		}
	}
	return best, nil
}

// localNodeConnectivity counts internally vertex-disjoint s-t paths by
// splitting every node into an in/out pair joined by a unit arc.
func localNodeConnectivity(g *Graph, s, t int) int {
	n := g.NodeCount()
	net := newFlowNetwork(2 * n)
	in := func(i int) int { return 2 * i }
	out := func(i int) int { return 2*i + 1 }
	for i := 0; i < n; i++ {
		capacity := 1
		if i == s || i == t {
			capacity = n
		}
		net.addArc(in(i), out(i), capacity)
	}
	g.Edges(func(i, j int, _ float64) {
		net.addArc(out(i), in(j), n)
		net.addArc(out(j), in(i), n)
	})
	return net.maxFlow(out(s), in(t))
}

type flowArc struct {
	to, rev, cap int
}

type flowNetwork struct {
	arcs [][]flowArc
}

func newFlowNetwork(n int) *flowNetwork {
	return &flowNetwork{arcs: make([][]flowArc, n)}
}

func (f *flowNetwork) addArc(u, v, c int) {
	f.arcs[u] = append(f.arcs[u], flowArc{to: v, rev: len(f.arcs[v]), cap: c})
	f.arcs[v] = append(f.arcs[v], flowArc{to: u, rev: len(f.arcs[u]) - 1, cap: 0})
}

// maxFlow runs Edmonds-Karp.
func (f *flowNetwork) maxFlow(s, t int) int {
	flow := 0
	n := len(f.arcs)
	for {
		prevNode := make([]int, n)
		prevArc := make([]int, n)
		for i := range prevNode {
			prevNode[i] = -1
		}
		prevNode[s] = s
		queue := []int{s}
		for head := 0; head < len(queue) && prevNode[t] < 0; head++ {
			u := queue[head]
			for k, a := range f.arcs[u] {
				if a.cap > 0 && prevNode[a.to] < 0 {
					prevNode[a.to] = u
					prevArc[a.to] = k
					queue = append(queue, a.to)
				}
			}
		}
		if prevNode[t] < 0 {
			return flow
		}
		push := math.MaxInt
		for v := t; v != s; v = prevNode[v] {
			push = min(push, f.arcs[prevNode[v]][prevArc[v]].cap)
		}
		for v := t; v != s; v = prevNode[v] {
			a := &f.arcs[prevNode[v]][prevArc[v]]
			a.cap -= push
			f.arcs[v][a.rev].cap += push
		}
		flow += push
	}
}
