package engine

import (
	"slices"

	"github.com/roach88/storygram/internal/graph"
)

// propagate narrows the Location candidate pools using Connections.
//
// Every Location with a single candidate forces its pattern neighbors onto
// that candidate's world neighbors; a pool narrowed to one candidate is
// queued in turn. The visited set over (location, candidate) bounds the
// worklist. Locations still holding several candidates are then filtered
// once, without narrowing anything else.
func (m *matcher) propagate(locs []graph.Handle, cand [][]graph.Handle) {
	index := make(map[graph.Handle]int, len(locs))
	for i, h := range locs {
		index[h] = i
	}

	type visit struct {
		loc int
		w   graph.Handle
	}
	visited := make(map[visit]bool)
	var queue []int
	for i := range cand {
		if len(cand[i]) == 1 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if len(cand[i]) != 1 {
			continue
		}
		v := visit{i, cand[i][0]}
		if visited[v] {
			continue
		}
		visited[v] = true

		forced, ok := m.neighborsFit(index, locs[i], v.w, cand, true)
		if !ok {
			cand[i] = nil
			continue
		}
		queue = append(queue, forced...)
	}

	for i := range cand {
		if len(cand[i]) <= 1 {
			continue
		}
		cand[i] = slices.DeleteFunc(slices.Clone(cand[i]), func(w graph.Handle) bool {
			_, ok := m.neighborsFit(index, locs[i], w, cand, false)
			return !ok
		})
	}
}

// neighborsFit reports whether world Location w can host pattern Location
// p given p's Connections. With narrow set, the pools of p's neighbors are
// cut down to w's compatible neighbors, and the indices of pools that just
// became singletons are returned.
func (m *matcher) neighborsFit(index map[graph.Handle]int, p, w graph.Handle, cand [][]graph.Handle, narrow bool) ([]int, bool) {
	m.stats.NeighborPasses++
	pn, wn := m.lhs.Get(p), m.world.Get(w)
	if len(pn.Connections) == 0 {
		return nil, true
	}
	if len(pn.Connections) > len(wn.Connections) {
		return nil, false
	}

	var names []string
	named := make(map[string][]int)
	var unnamed []int
	for _, d := range pn.Connections {
		j := index[d]
		name := m.lhs.Get(d).Name
		if name == "" {
			unnamed = append(unnamed, j)
			continue
		}
		if _, seen := named[name]; !seen {
			names = append(names, name)
		}
		named[name] = append(named[name], j)
	}

	wNamed := make(map[string][]graph.Handle)
	var spare []graph.Handle
	for _, d := range wn.Connections {
		name := m.world.Get(d).Name
		if _, want := named[name]; want {
			wNamed[name] = append(wNamed[name], d)
		} else {
			spare = append(spare, d)
		}
	}

	var forced []int
	restrict := func(j int, pool []graph.Handle) bool {
		inter := slices.DeleteFunc(slices.Clone(cand[j]), func(h graph.Handle) bool {
			return !slices.Contains(pool, h)
		})
		if len(inter) == 0 {
			return false
		}
		if narrow {
			if len(inter) == 1 && len(cand[j]) > 1 {
				forced = append(forced, j)
			}
			cand[j] = inter
		}
		return true
	}

	for _, name := range names {
		js, ws := named[name], wNamed[name]
		if len(js) > len(ws) {
			return nil, false
		}
		for _, j := range js {
			if !restrict(j, ws) {
				return nil, false
			}
		}
		if len(js) < len(ws) {
			spare = append(spare, ws...)
		}
	}
	for _, j := range unnamed {
		if !restrict(j, spare) {
			return nil, false
		}
	}
	return forced, true
}
