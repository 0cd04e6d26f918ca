package coco

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by validation and transforms. Callers test for them
// with errors.Is; every instance carries the offending entity ids in its
// message.
var (
	// ErrDanglingReference marks an annotation pointing at a missing image or category.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrDimensionMismatch marks geometry whose scale factors cannot be derived.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedGeometry marks a segmentation the active policy refuses to transform.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	// ErrMalformedInput marks structurally broken COCO JSON.
	ErrMalformedInput = errors.New("malformed input")
)

// ValidationError collects every problem found in one pass over a dataset,
// so a single run reports all dangling references, bad dimensions and
// rejected geometry at once instead of one per invocation.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) add(err error) {
	e.Problems = append(e.Problems, err)
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "validation failed"
	case 1:
		return e.Problems[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d problems found:", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.Error())
	}
	return b.String()
}

// Is reports whether any collected problem matches target, so the aggregate
// can be tested with errors.Is like a single error.
func (e *ValidationError) Is(target error) bool {
	for _, p := range e.Problems {
		if errors.Is(p, target) {
			return true
		}
	}
	return false
}

// orNil returns the aggregate only when something was collected.
func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
