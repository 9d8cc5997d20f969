package harness

import "github.com/roach88/storygram/internal/ir"

// StepResult records what one scenario step did.
type StepResult struct {
	Production  string   `json:"production"`
	Location    string   `json:"location"`
	Variants    int      `json:"variants"` // applicable variants found
	Applied     bool     `json:"applied"`
	MoveID      string   `json:"move_id,omitempty"`
	Description string   `json:"description,omitempty"`
	Modified    []string `json:"modified"`
	Failed      []int    `json:"failed"`
	RolledBack  bool     `json:"rolled_back,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expectations and every assertion held.
	Pass bool `json:"pass"`

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// World is the final world document.
	World ir.WorldDoc `json:"world"`

	// History is the recorded move history, in sequence order.
	History []ir.Move `json:"history"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Steps:   []StepResult{},
		Errors:  []string{},
		History: []ir.Move{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
