package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storygram/internal/compiler"
	"github.com/roach88/storygram/internal/engine"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	WorldOptions
	Production string
	Variant    int
	Strict     bool
	Out        string
	DB         string
}

// InstructionFailure is one failed instruction of an applied production.
type InstructionFailure struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApplyOutput describes one applied production.
type ApplyOutput struct {
	Production  string               `json:"production"`
	Variant     int                  `json:"variant"`
	Description string               `json:"description,omitempty"`
	Move        ir.Move              `json:"move"`
	Modified    []ModifiedNode       `json:"modified"`
	Failed      []InstructionFailure `json:"failed"`
	RolledBack  bool                 `json:"rolled_back"`
	Out         string               `json:"out,omitempty"`
}

// ModifiedNode is a node touched by the move.
type ModifiedNode struct {
	Handle string `json:"handle"`
	Layer  string `json:"layer"`
	Name   string `json:"name"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a production to a world",
		Long: `Apply one variant of a production at a location and print the
nodes it modified and the instructions that failed.

With --strict any failed instruction restores the world. With --out the
resulting world is written as a document. With --db the move is recorded
in a history database together with the world it produced.

Exit codes:
  0 - Applied with no failed instructions
  1 - Production not applicable, or an instruction failed
  2 - Command error (unreadable input, unknown production, store error)

Examples:
  storygram apply --world world.json --productions productions.json \
    --location Inn --production "Buy sword"
  storygram apply --world world.json --productions productions.json \
    --location Inn --subject Hero --production "Buy sword" --variant 1 \
    --strict --out world2.json --db history.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Variant < 0 {
				return NewExitError(ExitCommandError, "--variant must be non-negative")
			}
			return runApply(cmd.Context(), opts, cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.Production, "production", "", "title of the production to apply (required)")
	cmd.Flags().IntVar(&opts.Variant, "variant", 0, "index of the variant to apply, as listed by match")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "restore the world if any instruction fails")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the resulting world to this file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the move in this history database")
	_ = cmd.MarkFlagRequired("production")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	in, err := LoadInputs(opts.World, opts.Productions)
	if err != nil {
		return formatter.Report(err)
	}
	loc, subject, err := in.mainLocation(opts.Location, opts.Subject)
	if err != nil {
		return formatter.Report(err)
	}
	p, err := engine.FindProduction(in.Productions, opts.Production)
	if err != nil {
		return formatter.Report(commandError(ErrCodeNotFound, "unknown production", err))
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
		engine.WithStrict(opts.Strict),
	}

	var st *store.Store
	if opts.DB != "" {
		st, err = store.Open(opts.DB)
		if err != nil {
			return formatter.Report(commandError(ErrCodeStore, "failed to open history", err))
		}
		defer st.Close()

		clock, err := startHistory(ctx, st, in.World)
		if err != nil {
			return formatter.Report(err)
		}
		formatter.VerboseLog("history %s continues at seq %d", opts.DB, clock.Current()+1)
		engineOpts = append(engineOpts, engine.WithClock(clock))
	}

	eng := engine.New(engineOpts...)
	variants := eng.Filter(in.World, p, eng.Match(in.World, loc, p, subject))
	if len(variants) == 0 {
		return formatter.Report(&ExitError{
			Code:    ExitFailure,
			ErrCode: ErrCodeNotApplicable,
			Message: fmt.Sprintf("%q does not apply at %s", p.Title(), opts.Location),
		})
	}
	if opts.Variant >= len(variants) {
		return formatter.Report(&ExitError{
			Code:    ExitFailure,
			ErrCode: ErrCodeNotApplicable,
			Message: fmt.Sprintf("variant %d out of range (%d variants)", opts.Variant, len(variants)),
		})
	}
	v := variants[opts.Variant]
	description := engine.Personalise(p.Doc.Description, p.LHS, in.World, v)

	mv, res, err := eng.Step(in.World, p, v)
	if err != nil {
		return formatter.Report(commandError(ErrCodeGeneric, "failed to apply", err))
	}

	if st != nil {
		if err := st.RecordStep(ctx, mv, in.World.Export()); err != nil {
			return formatter.Report(commandError(ErrCodeStore, "failed to record move", err))
		}
	}
	if opts.Out != "" {
		if err := compiler.WriteWorldFile(opts.Out, in.World); err != nil {
			return formatter.Report(commandError(ErrCodeWriteFailed, "failed to write world", err))
		}
	}

	out := ApplyOutput{
		Production:  p.Title(),
		Variant:     opts.Variant,
		Description: description,
		Move:        mv,
		Modified:    modifiedNodes(in.World, res.Modified),
		Failed:      instructionFailures(res.Failed),
		RolledBack:  res.RolledBack,
		Out:         opts.Out,
	}

	if len(out.Failed) > 0 {
		exitErr := outcomeError(ErrCodeInstruction, fmt.Sprintf("%d instruction(s) failed", len(out.Failed)))
		if formatter.IsJSON() {
			if err := formatter.Failure(out, exitErr.ErrCode, exitErr.Message); err != nil {
				return err
			}
			return exitErr
		}
		outputApplyText(formatter, out)
		return exitErr
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	outputApplyText(formatter, out)
	return nil
}

// startHistory prepares st to continue from world. An empty history gets a
// start snapshot; a non-empty one must end in world.
func startHistory(ctx context.Context, st *store.Store, world *graph.World) (*engine.Clock, error) {
	doc := world.Export()
	digest, err := ir.WorldDigest(doc)
	if err != nil {
		return nil, commandError(ErrCodeGeneric, "failed to digest world", err)
	}

	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, commandError(ErrCodeStore, "failed to read history", err)
	}
	if last > 0 {
		chain, err := st.VerifyChain(ctx, "")
		if err != nil {
			return nil, commandError(ErrCodeStore, "failed to read history", err)
		}
		if chain.Head != digest {
			return nil, commandError(ErrCodeBrokenHistory,
				fmt.Sprintf("world %s is not where the history ends (%s)", digest, chain.Head), nil)
		}
		return engine.NewClockAt(last), nil
	}

	if _, err := st.SnapshotByDigest(ctx, digest); errors.Is(err, store.ErrNotFound) {
		if _, err := st.SaveSnapshot(ctx, engine.UUIDv7Generator{}.Generate(), 0, "start", doc); err != nil {
			return nil, commandError(ErrCodeStore, "failed to save start snapshot", err)
		}
	} else if err != nil {
		return nil, commandError(ErrCodeStore, "failed to read history", err)
	}
	return engine.NewClock(), nil
}

func modifiedNodes(world *graph.World, hs []graph.Handle) []ModifiedNode {
	out := make([]ModifiedNode, 0, len(hs))
	for _, h := range hs {
		n := world.Get(h)
		if n == nil {
			continue
		}
		out = append(out, ModifiedNode{Handle: h.String(), Layer: n.Layer.String(), Name: n.Label()})
	}
	return out
}

func instructionFailures(errs []*engine.OpError) []InstructionFailure {
	out := make([]InstructionFailure, 0, len(errs))
	for _, e := range errs {
		out = append(out, InstructionFailure{Index: e.Index, Op: e.Op, Code: string(e.Code), Message: e.Message})
	}
	return out
}

func outputApplyText(formatter *OutputFormatter, out ApplyOutput) {
	w := formatter.Writer
	status := "✓"
	if len(out.Failed) > 0 {
		status = "✗"
	}
	fmt.Fprintf(w, "%s %s [variant %d]\n", status, out.Production, out.Variant)
	if out.Description != "" {
		fmt.Fprintf(w, "  %s\n", out.Description)
	}

	fmt.Fprintf(w, "\nModified (%d):\n", len(out.Modified))
	for _, m := range out.Modified {
		fmt.Fprintf(w, "  %s %s (%s)\n", m.Handle, m.Name, m.Layer)
	}

	if len(out.Failed) > 0 {
		fmt.Fprintf(w, "\nFailed (%d):\n", len(out.Failed))
		for _, f := range out.Failed {
			fmt.Fprintf(w, "  [%d] %s: %s %s\n", f.Index, f.Op, f.Code, f.Message)
		}
	}
	if out.RolledBack {
		fmt.Fprintln(w, "\nWorld restored (strict mode).")
	}

	fmt.Fprintf(w, "\nMove %s seq %d\n", out.Move.ID, out.Move.Seq)
	if out.Out != "" {
		fmt.Fprintf(w, "World written to %s\n", out.Out)
	}
}
