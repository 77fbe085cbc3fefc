// Package network implements the read-only travel-time/distance/shortest-path
// oracle the rest of the core calls. Time and distance for real node pairs
// come from precomputed dense matrices loaded from the CSV matrix files;
// Path is computed on demand via a lvlath-backed Dijkstra search and
// memoized. Two reserved negative node codes are dwell sentinels.
package network

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dijkstra"
)

// Dwell sentinel codes.
const (
	DwellPickupSentinel = -10
	DwellAlightSentinel = -20
)

// maxRelaxations scales the shortest-path walk's distance cap (200 times the
// largest edge weight); a reconstructed path with more hops than this is
// reported through OnPathOverflow and still returned, never as an error.
const maxRelaxations = 200

// Oracle is the read-only travel-time/distance/shortest-path provider.
type Oracle struct {
	timeMatrix [][]int
	distMatrix [][]int

	dwellPickup int
	dwellAlight int

	graph    *core.Graph
	pathMemo sync.Map // key: [2]int -> []int

	onPathOverflow func(a, b int, hops int)
}

// New builds an Oracle from dense time/distance matrices (row i is
// time(i,0), time(i,1), ...) and a directed, weighted edge list used only to
// drive the shortest-path walk. Matrices are the source of truth for
// Time/Distance; the graph is the source of truth for Path.
func New(timeMatrix, distMatrix [][]int, edges []Edge, dwellPickup, dwellAlight int) *Oracle {
	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	for _, e := range edges {
		from := strconv.Itoa(e.From)
		to := strconv.Itoa(e.To)
		_, _ = g.AddEdge(from, to, int64(e.Weight))
	}
	return &Oracle{
		timeMatrix:  timeMatrix,
		distMatrix:  distMatrix,
		dwellPickup: dwellPickup,
		dwellAlight: dwellAlight,
		graph:       g,
	}
}

// Edge is a directed weighted edge in the road network (1-indexed on disk,
// 0-indexed once loaded).
type Edge struct {
	From, To, Weight int
}

// OnPathOverflow installs a callback invoked when the shortest-path walk
// exceeds maxRelaxations, so callers can log a warning without the oracle
// depending on a logger directly.
func (o *Oracle) OnPathOverflow(fn func(a, b int, hops int)) {
	o.onPathOverflow = fn
}

// Time returns t(a, b) in seconds. Sentinel inputs for a return the
// configured dwell constant, the mechanism by which the feasibility search
// charges dwell time through the same oracle call path.
func (o *Oracle) Time(a, b int) int {
	switch a {
	case DwellPickupSentinel:
		return o.dwellPickup
	case DwellAlightSentinel:
		return o.dwellAlight
	}
	if a < 0 || b < 0 || a >= len(o.timeMatrix) || b >= len(o.timeMatrix[a]) {
		return 0
	}
	return o.timeMatrix[a][b]
}

// Distance returns d(a, b). Sentinel a returns 0 (a dwell has no distance).
func (o *Oracle) Distance(a, b int) int {
	if a == DwellPickupSentinel || a == DwellAlightSentinel {
		return 0
	}
	if a < 0 || b < 0 || a >= len(o.distMatrix) || b >= len(o.distMatrix[a]) {
		return 0
	}
	return o.distMatrix[a][b]
}

// VehicleTime returns the earliest arrival at x from the vehicle's current
// in-flight position (offset seconds still owed to reach node).
func (o *Oracle) VehicleTime(offset, node, x int) int {
	return offset + o.Time(node, x)
}

// Path returns the ordered node sequence from a to b inclusive, memoized.
// Computed via a bounded Dijkstra walk over the road-network graph. A path
// with more than maxRelaxations hops is passed to the OnPathOverflow
// callback (if one is installed) and returned whole; when a is not in the
// graph or no path to b is found within the cap, the result is just [a, b].
func (o *Oracle) Path(a, b int) []int {
	if a == b {
		return []int{a}
	}
	key := [2]int{a, b}
	if v, ok := o.pathMemo.Load(key); ok {
		return v.([]int)
	}
	path := o.computePath(a, b)
	o.pathMemo.Store(key, path)
	return path
}

func (o *Oracle) computePath(a, b int) []int {
	src := strconv.Itoa(a)
	dst := strconv.Itoa(b)
	if !o.graph.HasVertex(src) {
		return []int{a, b}
	}
	_, prev, err := dijkstra.Dijkstra(o.graph, dijkstra.Source(src), dijkstra.WithReturnPath(),
		dijkstra.WithMaxDistance(int64(maxRelaxations)*int64(maxEdgeWeightGuess(o.graph))+1))
	if err != nil {
		return []int{a, b}
	}
	nodes, hops, ok := reconstruct(prev, src, dst)
	if !ok {
		return []int{a, b}
	}
	if hops > maxRelaxations {
		if o.onPathOverflow != nil {
			o.onPathOverflow(a, b, hops)
		}
	}
	out := make([]int, 0, len(nodes))
	for _, s := range nodes {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// maxEdgeWeightGuess avoids an unbounded MaxDistance by scaling to the
// largest single edge weight present; this keeps the relaxation count
// bounded without requiring callers to pass a distance cap explicitly.
func maxEdgeWeightGuess(g *core.Graph) int64 {
	var max int64 = 1
	for _, e := range g.Edges() {
		if e.Weight > max {
			max = e.Weight
		}
	}
	return max
}

func reconstruct(prev map[string]string, src, dst string) ([]string, int, bool) {
	if prev == nil {
		return nil, 0, false
	}
	if src == dst {
		return []string{src}, 0, true
	}
	var rev []string
	cur := dst
	hops := 0
	visited := map[string]bool{}
	for cur != "" && cur != src {
		if visited[cur] {
			return nil, 0, false // cycle guard, should not happen with non-negative weights
		}
		visited[cur] = true
		rev = append(rev, cur)
		cur = prev[cur]
		hops++
		if hops > maxRelaxations*4 {
			break
		}
	}
	if cur != src {
		return nil, 0, false
	}
	rev = append(rev, src)
	out := make([]string, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out, hops, true
}

// String is a debugging helper.
func (e Edge) String() string {
	return fmt.Sprintf("%d->%d(%d)", e.From, e.To, e.Weight)
}
