package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// MatchStats counts the work done by one match.
type MatchStats struct {
	// NeighborPasses is the number of Connection comparisons made during
	// neighbor propagation. Zero means matching was decided before it.
	NeighborPasses int

	// Combinations is the number of complete Location-level combinations
	// checked for edge consistency.
	Combinations int
}

type matcher struct {
	world   *graph.World
	lhs     *graph.World
	subject graph.Handle
	title   string
	log     *slog.Logger
	stats   MatchStats
}

// Match enumerates every variant of p in world with the main Location of
// p bound to mainLoc. When subject is non-zero it must be a Character
// directly inside mainLoc, and any pattern Character marked IsObject must
// bind to it.
//
// Returns nil when nothing matches. Infeasibility is not an error.
func Match(world *graph.World, mainLoc graph.Handle, p *Production, subject graph.Handle) ([]Variant, MatchStats) {
	return match(slog.Default(), world, mainLoc, p, subject)
}

func match(log *slog.Logger, world *graph.World, mainLoc graph.Handle, p *Production, subject graph.Handle) ([]Variant, MatchStats) {
	m := &matcher{world: world, lhs: p.LHS, subject: subject, title: p.Title(), log: log}
	if !subject.IsZero() && !subjectIn(world, mainLoc, subject) {
		m.reject("subject is not a Character of the main Location", "subject", subject)
		return nil, m.stats
	}
	vs := m.run(mainLoc)
	return vs, m.stats
}

func subjectIn(world *graph.World, mainLoc, subject graph.Handle) bool {
	n := world.Get(subject)
	return n != nil && n.Layer == graph.Characters && n.Parent() == mainLoc
}

func (m *matcher) reject(reason string, args ...any) {
	m.log.Debug("production not matched", append([]any{"production", m.title, "reason", reason}, args...)...)
}

func (m *matcher) run(mainLoc graph.Handle) []Variant {
	locs := m.lhs.Locations()
	pMain := m.lhs.Get(locs[0])
	wMain := m.world.Get(mainLoc)
	if wMain == nil || wMain.Layer != graph.Locations {
		m.reject("main location is not a world Location", "location", mainLoc)
		return nil
	}
	if pMain.Name != "" && pMain.Name != wMain.Name {
		m.reject("main location name differs", "want", pMain.Name, "got", wMain.Name)
		return nil
	}

	// Pigeonhole: no search when the world lacks enough same-named Locations.
	pCount := make(map[string]int)
	for _, h := range locs {
		if name := m.lhs.Get(h).Name; name != "" {
			pCount[name]++
		}
	}
	wByName := make(map[string][]graph.Handle)
	worldLocs := m.world.Locations()
	for _, h := range worldLocs {
		name := m.world.Get(h).Name
		wByName[name] = append(wByName[name], h)
	}
	for _, name := range sortedNames(pCount) {
		if pCount[name] > len(wByName[name]) {
			m.reject("not enough locations", "name", name, "want", pCount[name], "got", len(wByName[name]))
			return nil
		}
	}

	// Names the pattern uses up completely are unavailable to unnamed
	// pattern Locations.
	free := slices.DeleteFunc(slices.Clone(worldLocs), func(h graph.Handle) bool {
		if h == mainLoc {
			return true
		}
		name := m.world.Get(h).Name
		return name != "" && pCount[name] == len(wByName[name])
	})
	cand := make([][]graph.Handle, len(locs))
	cand[0] = []graph.Handle{mainLoc}
	for i := 1; i < len(locs); i++ {
		if name := m.lhs.Get(locs[i]).Name; name != "" {
			cand[i] = without(wByName[name], mainLoc)
		} else {
			cand[i] = slices.Clone(free)
		}
	}

	m.propagate(locs, cand)

	options := make([][][]Pair, len(locs))
	for i, pl := range locs {
		for _, w := range cand[i] {
			subs, ok := m.nodeAndChildren(pl, w)
			if !ok {
				continue
			}
			for _, s := range subs {
				options[i] = append(options[i], append([]Pair{{Pattern: pl, World: w}}, s...))
			}
		}
		if len(options[i]) == 0 {
			m.reject("location has no viable candidate", "pattern", m.lhs.Get(pl).Label())
			return nil
		}
	}

	var out []Variant
	product(options, func(combo []Pair) {
		m.stats.Combinations++
		v := newVariant(combo)
		if m.edgesConsistent(v, locs) {
			out = append(out, v)
		}
	})
	if len(out) == 0 {
		m.reject("no injective, connected combination")
		return nil
	}
	sortVariants(out)
	return out
}

// nodeAndChildren checks that w fits p and returns every injective binding
// of p's descendants below w. A childless p yields one empty binding.
func (m *matcher) nodeAndChildren(p, w graph.Handle) ([][]Pair, bool) {
	pn, wn := m.lhs.Get(p), m.world.Get(w)
	if !fits(pn, wn) {
		return nil, false
	}

	var groups [][][]Pair
	hasObjects := false
	for _, l := range graph.ChildLayers {
		pKids := m.lhs.Children(p, l)
		if len(pKids) == 0 {
			continue
		}
		wKids := m.world.Children(w, l)
		if len(wKids) < len(pKids) {
			return nil, false
		}

		pCount := make(map[string]int)
		for _, k := range pKids {
			if name := m.lhs.Get(k).Name; name != "" {
				pCount[name]++
			}
		}
		wByName := make(map[string][]graph.Handle)
		for _, k := range wKids {
			name := m.world.Get(k).Name
			wByName[name] = append(wByName[name], k)
		}
		for name, c := range pCount {
			if c > len(wByName[name]) {
				return nil, false
			}
		}

		useSubject := false
		if l == graph.Characters && !m.subject.IsZero() {
			objects := 0
			for _, k := range pKids {
				if m.lhs.Get(k).IsObject {
					objects++
				}
			}
			hasObjects = objects > 0
			useSubject = objects == 1 && slices.Contains(wKids, m.subject)
		}

		free := slices.DeleteFunc(slices.Clone(wKids), func(h graph.Handle) bool {
			if useSubject && h == m.subject {
				return true
			}
			name := m.world.Get(h).Name
			return name != "" && pCount[name] == len(wByName[name])
		})

		for _, k := range pKids {
			kn := m.lhs.Get(k)
			var cands []graph.Handle
			switch {
			case useSubject && kn.IsObject:
				cands = []graph.Handle{m.subject}
			case kn.Name != "":
				cands = wByName[kn.Name]
				if useSubject {
					cands = without(cands, m.subject)
				}
			default:
				cands = free
			}

			var opts [][]Pair
			for _, c := range cands {
				subs, ok := m.nodeAndChildren(k, c)
				if !ok {
					continue
				}
				for _, s := range subs {
					opts = append(opts, append([]Pair{{Pattern: k, World: c}}, s...))
				}
			}
			if len(opts) == 0 {
				return nil, false
			}
			groups = append(groups, opts)
		}
	}

	if len(groups) == 0 {
		return [][]Pair{nil}, true
	}
	var out [][]Pair
	product(groups, func(combo []Pair) {
		if hasObjects && !m.bindsSubject(combo) {
			return
		}
		out = append(out, combo)
	})
	return out, len(out) > 0
}

// fits compares Name and Attributes. A null pattern value only requires
// the key to be present.
func fits(p, w *graph.Node) bool {
	if p.Name != "" && p.Name != w.Name {
		return false
	}
	for k, pv := range p.Attributes {
		wv, ok := w.Attributes[k]
		if !ok {
			return false
		}
		if _, isNull := pv.(ir.Null); !isNull && !ir.Equal(pv, wv) {
			return false
		}
	}
	return true
}

func (m *matcher) bindsSubject(combo []Pair) bool {
	for _, p := range combo {
		if p.World == m.subject && m.lhs.Get(p.Pattern).IsObject {
			return true
		}
	}
	return false
}

// edgesConsistent requires every pattern Connection to exist between the
// bound world Locations.
func (m *matcher) edgesConsistent(v Variant, locs []graph.Handle) bool {
	for _, pl := range locs {
		from, _ := v.WorldOf(pl)
		wn := m.world.Get(from)
		for _, pd := range m.lhs.Get(pl).Connections {
			to, ok := v.WorldOf(pd)
			if !ok || !slices.Contains(wn.Connections, to) {
				return false
			}
		}
	}
	return true
}

// product calls emit with every concatenation of one option per group,
// skipping combinations that bind a world node twice. emit owns its slice.
func product(groups [][][]Pair, emit func([]Pair)) {
	var rec func(i int, acc []Pair)
	rec = func(i int, acc []Pair) {
		if i == len(groups) {
			emit(slices.Clone(acc))
			return
		}
		for _, opt := range groups[i] {
			if conflicts(acc, opt) {
				continue
			}
			rec(i+1, append(acc, opt...))
		}
	}
	rec(0, nil)
}

func conflicts(acc, opt []Pair) bool {
	for _, o := range opt {
		for _, a := range acc {
			if a.World == o.World {
				return true
			}
		}
	}
	return false
}

func without(hs []graph.Handle, drop graph.Handle) []graph.Handle {
	return slices.DeleteFunc(slices.Clone(hs), func(h graph.Handle) bool { return h == drop })
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
