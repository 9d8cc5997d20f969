package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storygram/internal/engine"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// WorldOptions are the flags shared by commands that run productions
// against a world.
type WorldOptions struct {
	World       string
	Productions []string
	Location    string
	Subject     string
}

func (o *WorldOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.World, "world", "", "world document (required)")
	cmd.Flags().StringSliceVar(&o.Productions, "productions", nil, "productions document (required, repeatable)")
	cmd.Flags().StringVar(&o.Location, "location", "", "Name or Id of the main Location (required)")
	cmd.Flags().StringVar(&o.Subject, "subject", "", "Name of the acting Character in the main Location")
	_ = cmd.MarkFlagRequired("world")
	_ = cmd.MarkFlagRequired("productions")
	_ = cmd.MarkFlagRequired("location")
}

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	WorldOptions
}

// MatchedVariant is one applicable binding of a production.
type MatchedVariant struct {
	Index       int          `json:"index"`
	Hash        string       `json:"hash"`
	Description string       `json:"description,omitempty"`
	Bindings    []ir.Binding `json:"bindings"`
}

// MatchedProduction is a production with at least one applicable variant.
type MatchedProduction struct {
	Title    string           `json:"title"`
	Variants []MatchedVariant `json:"variants"`
}

// MatchResult lists what can happen at a location.
type MatchResult struct {
	Location    string              `json:"location"`
	Subject     string              `json:"subject,omitempty"`
	Productions []MatchedProduction `json:"productions"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "List applicable productions at a location",
		Long: `Match every production against the world with the given main
Location, filter the variants by their preconditions, and list the
productions that can be applied with their variants in order.

The variant index is what apply --variant expects.

Examples:
  storygram match --world world.json --productions productions.json --location Inn
  storygram match --world world.json --productions core.json --productions quests.json \
    --location Inn --subject Hero --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, cmd)
		},
	}

	opts.register(cmd)

	return cmd
}

func runMatch(opts *MatchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	in, err := LoadInputs(opts.World, opts.Productions)
	if err != nil {
		return formatter.Report(err)
	}
	loc, subject, err := in.mainLocation(opts.Location, opts.Subject)
	if err != nil {
		return formatter.Report(err)
	}

	eng := engine.New(engine.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	applicable := eng.Applicable(in.World, loc, in.Productions, subject)

	result := MatchResult{
		Location:    opts.Location,
		Subject:     opts.Subject,
		Productions: make([]MatchedProduction, 0, len(applicable)),
	}
	for _, a := range applicable {
		formatter.VerboseLog("%s: %d neighbor pass(es), %d combination(s)",
			a.Production.Title(), a.Stats.NeighborPasses, a.Stats.Combinations)
		mp, err := describeVariants(in.World, a)
		if err != nil {
			return formatter.Report(commandError(ErrCodeGeneric, "failed to hash variant", err))
		}
		result.Productions = append(result.Productions, mp)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputMatchText(formatter, result)
	return nil
}

func describeVariants(world *graph.World, a engine.Applicable) (MatchedProduction, error) {
	p := a.Production
	mp := MatchedProduction{Title: p.Title(), Variants: make([]MatchedVariant, 0, len(a.Variants))}
	for i, v := range a.Variants {
		hash, err := v.Hash(p.LHS, world)
		if err != nil {
			return MatchedProduction{}, err
		}
		mp.Variants = append(mp.Variants, MatchedVariant{
			Index:       i,
			Hash:        hash,
			Description: engine.Personalise(p.Doc.Description, p.LHS, world, v),
			Bindings:    v.Bindings(p.LHS, world),
		})
	}
	return mp, nil
}

func outputMatchText(formatter *OutputFormatter, result MatchResult) {
	w := formatter.Writer
	if len(result.Productions) == 0 {
		fmt.Fprintf(w, "Nothing applies at %s.\n", result.Location)
		return
	}

	fmt.Fprintf(w, "%s: %d applicable production(s)\n", result.Location, len(result.Productions))
	for _, p := range result.Productions {
		fmt.Fprintf(w, "\n%s (%d variant(s))\n", p.Title, len(p.Variants))
		for _, v := range p.Variants {
			fmt.Fprintf(w, "  [%d] %s\n", v.Index, v.Description)
			for _, b := range v.Bindings {
				fmt.Fprintf(w, "      %s -> %s (%s)\n", b.PatternRef, b.WorldName, b.WorldHandle)
			}
		}
	}
}
