package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/storygram/internal/ir"
)

// marshalWorld converts a world document to canonical JSON TEXT and returns
// its digest alongside.
func marshalWorld(doc ir.WorldDoc) (data, digest string, err error) {
	b, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal world: %w", err)
	}
	digest, err = ir.WorldDigest(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal world: %w", err)
	}
	return string(b), digest, nil
}

// unmarshalWorld parses canonical JSON TEXT to a world document.
func unmarshalWorld(data string) (ir.WorldDoc, error) {
	var doc ir.WorldDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return ir.WorldDoc{}, fmt.Errorf("unmarshal world: %w", err)
	}
	return doc, nil
}

// marshalBindings converts bindings to canonical JSON TEXT, keeping their
// order.
func marshalBindings(bindings []ir.Binding) (string, error) {
	arr := make([]any, len(bindings))
	for i, b := range bindings {
		m := map[string]any{
			"pattern_ref":  b.PatternRef,
			"world_handle": b.WorldHandle,
		}
		if b.WorldName != "" {
			m["world_name"] = b.WorldName
		}
		arr[i] = m
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal bindings: %w", err)
	}
	return string(data), nil
}

func unmarshalBindings(data string) ([]ir.Binding, error) {
	out := []ir.Binding{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal bindings: %w", err)
	}
	return out, nil
}

func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	data, err := ir.MarshalCanonical(ss)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	out := []string{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

func marshalInts(ns []int) (string, error) {
	arr := make([]any, len(ns))
	for i, n := range ns {
		arr[i] = n
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal ints: %w", err)
	}
	return string(data), nil
}

func unmarshalInts(data string) ([]int, error) {
	out := []int{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal ints: %w", err)
	}
	return out, nil
}
