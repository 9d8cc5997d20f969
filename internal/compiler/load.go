package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// ParseProductions decodes a productions document: either one production
// object or an array of them.
func ParseProductions(data []byte) ([]ir.ProductionDoc, error) {
	if isArray(data) {
		var docs []ir.ProductionDoc
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode productions: %w", err)
		}
		return docs, nil
	}
	var doc ir.ProductionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode production: %w", err)
	}
	return []ir.ProductionDoc{doc}, nil
}

// ReadProductions reads and decodes a productions document from r.
func ReadProductions(r io.Reader) ([]ir.ProductionDoc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read productions: %w", err)
	}
	return ParseProductions(data)
}

// LoadProductionsFile reads a productions document from disk. It does not
// validate; see CheckProductions.
func LoadProductionsFile(path string) ([]ir.ProductionDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	docs, err := ParseProductions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// ParseWorld decodes a world document and loads it into a graph.
func ParseWorld(data []byte) (*graph.World, error) {
	var doc ir.WorldDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &graph.LoadError{Code: graph.ErrCodeMalformed, Message: err.Error()}
	}
	return graph.Load(doc)
}

// LoadWorldFile reads a world document from disk.
func LoadWorldFile(path string) (*graph.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	w, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// MarshalWorld renders a world in its indented document form.
func MarshalWorld(w *graph.World) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w.Export()); err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteWorldFile writes the document form of w to path, creating parent
// directories as needed.
func WriteWorldFile(path string, w *graph.World) error {
	data, err := MarshalWorld(w)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CheckProductions runs the full validation pipeline on a raw productions
// document: CUE schema first, then the Go rule checks. Rule checks only
// run on documents that pass the schema.
func CheckProductions(sv *SchemaValidator, name string, data []byte) ([]ir.ProductionDoc, []ValidationError) {
	if errs := sv.ValidateProductions(name, data); len(errs) > 0 {
		return nil, errs
	}
	docs, err := ParseProductions(data)
	if err != nil {
		return nil, []ValidationError{{Field: "document", Message: err.Error(), Code: ErrSchema}}
	}
	if isArray(data) {
		return docs, ValidateProductions(docs)
	}
	return docs, ValidateProduction(docs[0])
}

// CheckWorld validates and loads a raw world document.
func CheckWorld(sv *SchemaValidator, name string, data []byte) (*graph.World, []ValidationError) {
	if errs := sv.ValidateWorld(name, data); len(errs) > 0 {
		return nil, errs
	}
	w, err := ParseWorld(data)
	if err != nil {
		ve := ValidationError{Field: "document", Message: err.Error(), Code: ErrSchema}
		var le *graph.LoadError
		if errors.As(err, &le) {
			ve.Message = le.Message
			ve.Code = string(le.Code)
			if le.Path != "" {
				ve.Field = le.Path
			}
		}
		return nil, []ValidationError{ve}
	}
	return w, nil
}
