package pathing

// Graph exposes region adjacency. Neighbors must be returned in a stable
// order; the search visits them as given.
type Graph interface {
	Neighbors(region string) []string
}

// ShortestPath returns the hops from `from` to `to`, excluding `from` and
// including `to`. Regions in avoid are never entered, except `to` itself.
// Ties resolve to the first path found in neighbor order, so repeated calls
// on an unchanged graph return the same path.
func ShortestPath(g Graph, from, to string, avoid map[string]bool) ([]string, bool) {
	if from == "" || to == "" {
		return nil, false
	}
	if from == to {
		return nil, true
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, n := range g.Neighbors(cur) {
			if _, seen := prev[n]; seen {
				continue
			}
			if avoid[n] && n != to {
				continue
			}
			prev[n] = cur
			if n == to {
				return unwind(prev, from, to), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

func unwind(prev map[string]string, from, to string) []string {
	var rev []string
	for cur := to; cur != from; cur = prev[cur] {
		rev = append(rev, cur)
	}
	out := make([]string, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// WithinHops returns every region reachable from start in at most radius
// hops, mapped to its hop distance. start itself is at distance 0.
func WithinHops(g Graph, start string, radius int) map[string]int {
	dist := map[string]int{start: 0}
	if radius <= 0 {
		return dist
	}
	frontier := []string{start}
	for d := 1; d <= radius && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range g.Neighbors(cur) {
				if _, ok := dist[n]; ok {
					continue
				}
				dist[n] = d
				next = append(next, n)
			}
		}
		frontier = next
	}
	return dist
}
