package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/storygram/internal/compiler"
	"github.com/roach88/storygram/internal/engine"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/store"
	"github.com/roach88/storygram/internal/testutil"
)

// Harness is the scenario execution engine.
// It applies steps through the real matcher and rewriter with a
// deterministic clock and move IDs, recording every move to a history store.
type Harness struct {
	store  *store.Store
	clock  *engine.Clock
	ids    *testutil.FixedIDGenerator
	logger *slog.Logger

	world       *graph.World
	productions []*engine.Production
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Validate and compile the productions
// 2. Load the world and snapshot it
// 3. Execute steps with expectation checks
// 4. Verify the recorded move chain
// 5. Evaluate assertions against the final world and history
//
// The returned error reports a scenario that cannot run at all; failed
// expectations and assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine diagnostics sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if errs := compiler.ValidateProductions(scenario.Productions); len(errs) > 0 {
		return nil, fmt.Errorf("invalid productions: %w", errs[0])
	}
	productions, err := engine.LoadProductions(scenario.Productions)
	if err != nil {
		return nil, fmt.Errorf("failed to compile productions: %w", err)
	}
	world, err := graph.Load(scenario.World)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}

	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:       st,
		clock:       engine.NewClock(),
		ids:         testutil.NewFixedIDGenerator("move"),
		logger:      logger,
		world:       world,
		productions: productions,
	}

	ctx := context.Background()
	start, err := st.SaveSnapshot(ctx, "start", 0, "start", world.Export())
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	chain, err := st.VerifyChain(ctx, start)
	if err != nil {
		return nil, err
	}
	for _, b := range chain.Breaks {
		result.AddError(fmt.Sprintf("history: move %s (seq %d) starts from %s, previous world was %s",
			b.MoveID, b.Seq, b.Got, b.Want))
	}

	result.History, err = st.ListMoves(ctx)
	if err != nil {
		return nil, err
	}
	result.World = world.Export()

	actx := &AssertionContext{
		World: world,
		Store: st,
		Ctx:   ctx,
		Steps: result.Steps,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep matches, applies and records one step. Unmet expectations
// are added to result; the error is reserved for unknown productions and
// store failures.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	p, err := engine.FindProduction(h.productions, step.Production)
	if err != nil {
		return err
	}
	sr := StepResult{
		Production: step.Production,
		Location:   step.Location,
		Modified:   []string{},
		Failed:     []int{},
	}
	defer func() { result.Steps = append(result.Steps, sr) }()

	loc, err := engine.FindLocation(h.world, step.Location)
	if err != nil {
		result.AddError(fmt.Sprintf("step %d: %v", i, err))
		return nil
	}
	subject, err := engine.ResolveSubject(h.world, loc, step.Subject)
	if err != nil {
		result.AddError(fmt.Sprintf("step %d: %v", i, err))
		return nil
	}

	eng := engine.New(
		engine.WithLogger(h.logger),
		engine.WithStrict(step.Strict),
		engine.WithIDGenerator(h.ids),
		engine.WithClock(h.clock),
	)
	variants := eng.Filter(h.world, p, eng.Match(h.world, loc, p, subject))
	sr.Variants = len(variants)

	if step.ExpectVariants != nil && *step.ExpectVariants != len(variants) {
		result.AddError(fmt.Sprintf("step %d: %q at %s: expected %d variants, got %d",
			i, step.Production, step.Location, *step.ExpectVariants, len(variants)))
		return nil
	}
	if len(variants) == 0 {
		if step.ExpectVariants == nil {
			result.AddError(fmt.Sprintf("step %d: %q does not apply at %s", i, step.Production, step.Location))
		}
		return nil
	}
	if step.Variant >= len(variants) {
		result.AddError(fmt.Sprintf("step %d: variant %d out of range (%d variants)", i, step.Variant, len(variants)))
		return nil
	}

	v := variants[step.Variant]
	sr.Description = engine.Personalise(p.Doc.Description, p.LHS, h.world, v)
	if step.ExpectDescription != "" && step.ExpectDescription != sr.Description {
		result.AddError(fmt.Sprintf("step %d: expected description %q, got %q", i, step.ExpectDescription, sr.Description))
	}

	mv, res, err := eng.Step(h.world, p, v)
	if err != nil {
		return err
	}
	if err := h.store.RecordStep(ctx, mv, h.world.Export()); err != nil {
		return err
	}

	sr.Applied = true
	sr.MoveID = mv.ID
	sr.RolledBack = mv.RolledBack
	sr.Failed = mv.Failed
	for _, m := range res.Modified {
		if n := h.world.Get(m); n != nil {
			sr.Modified = append(sr.Modified, n.Label())
		}
	}

	expected := step.ExpectFailed
	if expected == nil {
		expected = []int{}
	}
	if !slices.Equal(expected, sr.Failed) {
		for _, f := range res.Failed {
			h.logger.Debug("instruction failed", "step", i, "error", f)
		}
		result.AddError(fmt.Sprintf("step %d: %q: expected failed instructions %v, got %v",
			i, step.Production, expected, sr.Failed))
	}

	h.logger.Info("step completed",
		"step", i,
		"production", step.Production,
		"move_id", mv.ID,
		"variants", len(variants),
		"failed", len(sr.Failed),
	)
	return nil
}
