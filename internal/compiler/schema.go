package compiler

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// SchemaValidator checks raw JSON documents against the embedded CUE
// schema before they are decoded.
//
// Uses CUE SDK's Go API directly (not CLI subprocess). A SchemaValidator
// is not safe for concurrent use.
type SchemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewSchemaValidator compiles the embedded schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", formatCUEError(err))
	}
	return &SchemaValidator{ctx: ctx, schema: schema}, nil
}

// ValidateProductions checks a productions document: one production
// object or an array of them. name labels positions in the errors.
func (s *SchemaValidator) ValidateProductions(name string, data []byte) []ValidationError {
	def := "#Production"
	if isArray(data) {
		def = "#Productions"
	}
	return s.validate(name, data, def)
}

// ValidateWorld checks a world document.
func (s *SchemaValidator) ValidateWorld(name string, data []byte) []ValidationError {
	return s.validate(name, data, "#WorldDoc")
}

func (s *SchemaValidator) validate(name string, data []byte, def string) []ValidationError {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return schemaErrors(name, err)
	}
	doc := s.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return schemaErrors(name, err)
	}
	v := s.schema.LookupPath(cue.ParsePath(def)).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schemaErrors(name, err)
	}
	return nil
}

// schemaErrors converts CUE errors, keeping the line of the first position
// that falls inside the checked document.
func schemaErrors(name string, err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			Field:   pathString(e.Path()),
			Message: e.Error(),
			Code:    ErrSchema,
		}
		for _, pos := range errors.Positions(e) {
			if pos.Filename() == name {
				ve.Line = pos.Line()
				break
			}
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "document", Message: err.Error(), Code: ErrSchema})
	}
	return out
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "document"
	}
	return strings.Join(path, ".")
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return fmt.Errorf("%s:%d:%d: %w", pos.Filename(), pos.Line(), pos.Column(), first)
	}
	return err
}
