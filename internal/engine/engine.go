package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// Engine bundles the matcher, the precondition filter and the rewriter
// with their configuration.
//
// The zero value is not usable; construct with New.
//
// Thread-safety model:
//   - Engine itself holds no world state and may be shared.
//   - A World must not be matched and rewritten concurrently.
//
// INVARIANTS:
//   - Variants are always returned in Variant.Compare order.
//   - Step numbers moves with a strictly increasing Clock.
type Engine struct {
	log    *slog.Logger
	strict bool
	ids    IDGenerator
	clock  *Clock
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger for diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithStrict makes Apply roll the world back to its state before the
// production as soon as one instruction fails.
//
// Default: false (best-effort; failing instructions are skipped).
func WithStrict(strict bool) EngineOption {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithIDGenerator sets the move ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the move sequence clock, typically NewClockAt with the
// last sequence number of a history store.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		log:   slog.Default(),
		ids:   UUIDv7Generator{},
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether Apply rolls back on failure.
func (e *Engine) Strict() bool { return e.strict }

// Clock returns the move sequence clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Match enumerates the variants of p with its main Location bound to
// mainLoc. See the package Match.
func (e *Engine) Match(world *graph.World, mainLoc graph.Handle, p *Production, subject graph.Handle) []Variant {
	vs, _ := match(e.log, world, mainLoc, p, subject)
	return vs
}

// MatchWithStats is Match plus the work counters.
func (e *Engine) MatchWithStats(world *graph.World, mainLoc graph.Handle, p *Production, subject graph.Handle) ([]Variant, MatchStats) {
	return match(e.log, world, mainLoc, p, subject)
}

// Filter keeps the variants that satisfy every precondition of p.
func (e *Engine) Filter(world *graph.World, p *Production, variants []Variant) []Variant {
	return filter(e.log, world, p, variants)
}

// Applicable is a production with at least one surviving variant.
type Applicable struct {
	Production *Production
	Variants   []Variant
	Stats      MatchStats
}

// Applicable matches and filters every production at mainLoc and returns
// those with surviving variants, in production order.
func (e *Engine) Applicable(world *graph.World, mainLoc graph.Handle, ps []*Production, subject graph.Handle) []Applicable {
	var out []Applicable
	for _, p := range ps {
		vs, stats := e.MatchWithStats(world, mainLoc, p, subject)
		vs = e.Filter(world, p, vs)
		if len(vs) == 0 {
			continue
		}
		out = append(out, Applicable{Production: p, Variants: vs, Stats: stats})
	}
	e.log.Debug("applicable productions", "location", mainLoc, "count", len(out), "of", len(ps))
	return out
}

// Apply runs p's instructions under v, honoring the strict setting.
func (e *Engine) Apply(world *graph.World, p *Production, v Variant) ApplyResult {
	return apply(e.log, world, p, v, e.strict)
}

// Step applies p under v and returns the history record of the move.
// The error reports a failure to digest the world; the application
// itself never errors, its failures are in the ApplyResult.
func (e *Engine) Step(world *graph.World, p *Production, v Variant) (ir.Move, ApplyResult, error) {
	before, err := ir.WorldDigest(world.Export())
	if err != nil {
		return ir.Move{}, ApplyResult{}, fmt.Errorf("digest world before %q: %w", p.Title(), err)
	}
	bindings := v.Bindings(p.LHS, world)
	hash, err := ir.VariantHash(bindings)
	if err != nil {
		return ir.Move{}, ApplyResult{}, fmt.Errorf("hash variant of %q: %w", p.Title(), err)
	}

	res := e.Apply(world, p, v)

	after, err := ir.WorldDigest(world.Export())
	if err != nil {
		return ir.Move{}, res, fmt.Errorf("digest world after %q: %w", p.Title(), err)
	}

	modified := make([]string, 0, len(res.Modified))
	for _, h := range res.Modified {
		modified = append(modified, h.String())
	}
	mv := ir.Move{
		ID:              e.ids.Generate(),
		Seq:             e.clock.Next(),
		ProductionTitle: p.Title(),
		Bindings:        bindings,
		VariantHash:     hash,
		Modified:        modified,
		Failed:          res.FailedIndices(),
		Strict:          e.strict,
		RolledBack:      res.RolledBack,
		BeforeDigest:    before,
		AfterDigest:     after,
	}
	e.log.Info("move applied",
		"production", mv.ProductionTitle,
		"seq", mv.Seq,
		"modified", len(mv.Modified),
		"failed", len(mv.Failed))
	return mv, res, nil
}

// ResolveSubject finds the Character named name directly inside mainLoc.
// An empty name yields the zero Handle, meaning no subject.
func ResolveSubject(world *graph.World, mainLoc graph.Handle, name string) (graph.Handle, error) {
	if name == "" {
		return graph.Handle{}, nil
	}
	if world.Get(mainLoc) == nil {
		return graph.Handle{}, fmt.Errorf("subject %q: %w", name, graph.ErrStale)
	}
	var found []graph.Handle
	for _, h := range world.Children(mainLoc, graph.Characters) {
		if n := world.Get(h); n.Name == name || n.Id == name {
			found = append(found, h)
		}
	}
	switch len(found) {
	case 0:
		return graph.Handle{}, fmt.Errorf("no Character %q in %s", name, world.Get(mainLoc).Label())
	case 1:
		return found[0], nil
	default:
		return graph.Handle{}, fmt.Errorf("%d Characters named %q in %s", len(found), name, world.Get(mainLoc).Label())
	}
}

// FindLocation returns the world Location with the given Name or Id.
func FindLocation(world *graph.World, name string) (graph.Handle, error) {
	var found []graph.Handle
	for _, h := range world.Locations() {
		if n := world.Get(h); n.Name == name || n.Id == name {
			found = append(found, h)
		}
	}
	switch len(found) {
	case 0:
		return graph.Handle{}, fmt.Errorf("no Location %q", name)
	case 1:
		return found[0], nil
	default:
		return graph.Handle{}, fmt.Errorf("%d Locations named %q", len(found), name)
	}
}
