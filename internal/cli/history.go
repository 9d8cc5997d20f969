package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	Production string // optional - one production only
	Verify     bool
}

// HistoryResult holds the recorded moves and, with --verify, the chain check.
type HistoryResult struct {
	Moves []ir.Move         `json:"moves"`
	Total int               `json:"total"`
	Chain *store.ChainState `json:"chain,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded moves",
		Long: `List the moves recorded by apply --db in sequence order.

With --verify the history is checked as a chain: every move must start
from the world its predecessor ended in.

Exit codes:
  0 - History listed (and contiguous with --verify)
  1 - The history chain is broken
  2 - Command error (database not found, etc.)

Examples:
  storygram history --db history.db
  storygram history --db history.db --production "Buy sword"
  storygram history --db history.db --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Production, "production", "", "list moves of this production only")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check that the moves form an unbroken chain")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Open would create a missing database.
	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return formatter.Report(commandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Report(commandError(ErrCodeStore, "failed to open database", err))
	}
	defer st.Close()

	var moves []ir.Move
	if opts.Production != "" {
		moves, err = st.MovesByProduction(ctx, opts.Production)
	} else {
		moves, err = st.ListMoves(ctx)
	}
	if err != nil {
		return formatter.Report(commandError(ErrCodeStore, "failed to list moves", err))
	}
	if moves == nil {
		moves = []ir.Move{}
	}
	result := HistoryResult{Moves: moves, Total: len(moves)}

	if opts.Verify {
		chain, err := st.VerifyChain(ctx, "")
		if err != nil {
			return formatter.Report(commandError(ErrCodeStore, "failed to verify history", err))
		}
		result.Chain = &chain
	}

	var exitErr *ExitError
	if result.Chain != nil && !result.Chain.IsContiguous() {
		exitErr = outcomeError(ErrCodeBrokenHistory, fmt.Sprintf("history broken at %d move(s)", len(result.Chain.Breaks)))
	}

	if formatter.IsJSON() {
		if exitErr == nil {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result, exitErr.ErrCode, exitErr.Message); err != nil {
			return err
		}
		return exitErr
	}

	outputHistoryText(formatter, result)
	if exitErr != nil {
		return exitErr
	}
	return nil
}

func outputHistoryText(formatter *OutputFormatter, result HistoryResult) {
	w := formatter.Writer
	if len(result.Moves) == 0 {
		fmt.Fprintln(w, "No moves recorded.")
	}

	for _, mv := range result.Moves {
		status := "applied"
		switch {
		case mv.RolledBack:
			status = "rolled back"
		case len(mv.Failed) > 0:
			status = fmt.Sprintf("failed %v", mv.Failed)
		}
		fmt.Fprintf(w, "%4d  %s  (%s)\n", mv.Seq, mv.ProductionTitle, status)
		if formatter.Verbose {
			fmt.Fprintf(w, "      id %s\n", mv.ID)
			for _, b := range mv.Bindings {
				fmt.Fprintf(w, "      %s -> %s (%s)\n", b.PatternRef, b.WorldName, b.WorldHandle)
			}
			fmt.Fprintf(w, "      %s -> %s\n", mv.BeforeDigest, mv.AfterDigest)
		}
	}

	if result.Chain == nil {
		return
	}
	fmt.Fprintln(w)
	if result.Chain.IsContiguous() {
		fmt.Fprintf(w, "✓ History intact (%d move(s), last seq %d)\n", result.Chain.Moves, result.Chain.LastSeq)
		if !result.Chain.HeadStored && result.Chain.Head != "" {
			fmt.Fprintf(w, "  no snapshot of the final world %s\n", result.Chain.Head)
		}
		return
	}
	fmt.Fprintln(w, "✗ History broken")
	for _, b := range result.Chain.Breaks {
		fmt.Fprintf(w, "  seq %d (%s) starts from %s, expected %s\n", b.Seq, b.MoveID, b.Got, b.Want)
	}
}
