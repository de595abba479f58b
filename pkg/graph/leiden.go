package graph

import (
	"context"
	"math/rand/v2"
)

const gainEpsilon = 1e-12

type wedge struct {
	to int
	w  float64
}

// wgraph is the working representation during partitioning. Aggregated
// nodes carry their internal weight as a self loop.
type wgraph struct {
	adj  [][]wedge
	self []float64
	k    []float64
	m2   float64
}

func toWorking(g *Graph) *wgraph {
	n := g.NodeCount()
	wg := &wgraph{
		adj:  make([][]wedge, n),
		self: make([]float64, n),
		k:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		for _, j := range g.nbrs[i] {
			w := g.weights[i][j]
			wg.adj[i] = append(wg.adj[i], wedge{to: j, w: w})
			wg.k[i] += w
		}
		wg.m2 += wg.k[i]
	}
	return wg
}

func (wg *wgraph) size() int { return len(wg.adj) }

// Leiden partitions g by optimizing modularity at the given resolution.
// Each level runs seeded local moving, refines every community into its
// connected parts and aggregates the refined communities into single
// nodes, starting the next level from the unrefined assignment. The
// refinement step guarantees every returned community is connected.
func Leiden(ctx context.Context, g *Graph, opts PartitionOptions) ([]int, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, nil
	}
	maxLevels := opts.MaxLevels
	if maxLevels <= 0 {
		maxLevels = 10
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0x9e3779b97f4a7c15))

	wg := toWorking(g)
	// membership maps each original node to its node in the current level.
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}
	if wg.m2 == 0 {
		return relabel(membership), nil
	}

	initial := make([]int, n)
	for i := range initial {
		initial[i] = i
	}

	for level := 0; level < maxLevels; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		comm := localMove(wg, initial, opts.Resolution, rng)
		refined := refine(wg, comm)
		count := 0
		for _, r := range refined {
			count = max(count, r+1)
		}
		for i := range membership {
			membership[i] = refined[membership[i]]
		}
		if count == wg.size() {
			break
		}

		next := make([]int, count)
		for i, r := range refined {
			next[r] = comm[i]
		}
		wg = aggregate(wg, refined, count)
		initial = relabel(next)
	}

	return relabel(membership), nil
}

// localMove repeatedly moves single nodes to the neighboring community with
// the best modularity gain until no move improves it.
func localMove(wg *wgraph, initial []int, resolution float64, rng *rand.Rand) []int {
	n := wg.size()
	comm := append([]int(nil), initial...)
	sigma := make([]float64, n)
	count := make([]int, n)
	for i, c := range comm {
		sigma[c] += wg.k[i]
		count[c]++
	}
	var free []int
	for c := n - 1; c >= 0; c-- {
		if count[c] == 0 {
			free = append(free, c)
		}
	}

	linkWeight := make([]float64, n)
	isTouched := make([]bool, n)
	touched := make([]int, 0, 16)

	for pass := 0; pass < 100; pass++ {
		moved := false
		for _, i := range rng.Perm(n) {
			ci := comm[i]
			touched = touched[:0]
			for _, e := range wg.adj[i] {
				c := comm[e.to]
				if !isTouched[c] {
					isTouched[c] = true
					touched = append(touched, c)
				}
				linkWeight[c] += e.w
			}

			sigma[ci] -= wg.k[i]
			count[ci]--
			ki := wg.k[i]

			best := ci
			bestGain := linkWeight[ci] - resolution*ki*sigma[ci]/wg.m2
			for _, c := range touched {
				if c == ci {
					continue
				}
				gain := linkWeight[c] - resolution*ki*sigma[c]/wg.m2
				if gain > bestGain+gainEpsilon {
					best, bestGain = c, gain
				}
			}
			// Leaving for an empty community has zero gain.
			if bestGain < -gainEpsilon && count[ci] > 0 && len(free) > 0 {
				best = free[len(free)-1]
				free = free[:len(free)-1]
			}

			if count[ci] == 0 && best != ci {
				free = append(free, ci)
			}
			sigma[best] += ki
			count[best]++
			if best != ci {
				comm[i] = best
				moved = true
			}

			for _, c := range touched {
				linkWeight[c] = 0
				isTouched[c] = false
			}
		}
		if !moved {
			break
		}
	}
	return relabel(comm)
}

// refine splits every community into its connected components and returns
// dense labels for the resulting sub-communities.
func refine(wg *wgraph, comm []int) []int {
	n := wg.size()
	refined := make([]int, n)
	for i := range refined {
		refined[i] = -1
	}
	next := 0
	queue := make([]int, 0, n)
	for s := 0; s < n; s++ {
		if refined[s] >= 0 {
			continue
		}
		refined[s] = next
		queue = append(queue[:0], s)
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, e := range wg.adj[u] {
				if refined[e.to] < 0 && comm[e.to] == comm[s] {
					refined[e.to] = next
					queue = append(queue, e.to)
				}
			}
		}
		next++
	}
	return refined
}

// aggregate collapses every refined community into one node.
func aggregate(wg *wgraph, refined []int, count int) *wgraph {
	out := &wgraph{
		adj:  make([][]wedge, count),
		self: make([]float64, count),
		k:    make([]float64, count),
		m2:   wg.m2,
	}
	pos := make([]map[int]int, count)
	for i := range pos {
		pos[i] = map[int]int{}
	}
	for i := range wg.adj {
		ri := refined[i]
		out.self[ri] += wg.self[i]
		out.k[ri] += wg.k[i]
		for _, e := range wg.adj[i] {
			rj := refined[e.to]
			if ri == rj {
				if i < e.to {
					out.self[ri] += e.w
				}
				continue
			}
			if p, ok := pos[ri][rj]; ok {
				out.adj[ri][p].w += e.w
				continue
			}
			pos[ri][rj] = len(out.adj[ri])
			out.adj[ri] = append(out.adj[ri], wedge{to: rj, w: e.w})
		}
	}
	return out
}

// relabel renumbers labels densely in order of first appearance.
func relabel(labels []int) []int {
	seen := map[int]int{}
	out := make([]int, len(labels))
	for i, l := range labels {
		r, ok := seen[l]
		if !ok {
			r = len(seen)
			seen[l] = r
		}
		out[i] = r
	}
	return out
}

// Modularity of the partition labels at the given resolution:
// sum over communities of L_c/m - resolution*(d_c/2m)^2.
func Modularity(g *Graph, labels []int, resolution float64) (float64, error) {
	if len(labels) != g.NodeCount() {
		return 0, ErrUndefined
	}
	m := g.TotalWeight()
	if m == 0 {
		return 0, ErrUndefined
	}
	intra := map[int]float64{}
	degree := map[int]float64{}
	for i := 0; i < g.NodeCount(); i++ {
		degree[labels[i]] += g.Strength(i)
	}
	g.Edges(func(i, j int, w float64) {
		if labels[i] == labels[j] {
			intra[labels[i]] += w
		}
	})
	var q float64
	for c, d := range degree {
		q += intra[c]/m - resolution*(d/(2*m))*(d/(2*m))
	}
	return q, nil
}
