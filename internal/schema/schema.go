// Package schema holds an explicit, data-driven description of the
// recognized job document fields (name, type, constraint) and a generic
// validator over it. Validation runs before any process is spawned;
// nothing in here knows about invocation.
package schema

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Violation is one failed constraint. Field is the dotted path of the
// offending field in the document.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// Error aggregates violations into a single ConfigurationInvalid error.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return "invalid job document: " + strings.Join(msgs, "; ")
}

// StrField constrains an optional string field.
type StrField struct {
	Name   string
	Value  *string
	MinLen int
	Enum   mapset.Set[string]
	// Format, when set, is applied after the cheaper checks.
	Format func(value string) error
}

// IntField constrains an optional integer field.
type IntField struct {
	Name  string
	Value *int
	Min   *int
	Max   *int
}

// Check validates all fields against their declared constraints. Unset
// (nil) values pass: optional fields are only constrained when present.
func Check(strs []StrField, ints []IntField) []Violation {
	var out []Violation

	for _, f := range strs {
		if f.Value == nil {
			continue
		}
		v := *f.Value
		if len(v) < f.MinLen {
			out = append(out, Violation{f.Name,
				fmt.Sprintf("must be at least %d characters, got %q", f.MinLen, v)})
			continue
		}
		if f.Enum != nil && !f.Enum.Contains(v) {
			out = append(out, Violation{f.Name,
				fmt.Sprintf("%q is not one of %s", v, f.Enum.String())})
			continue
		}
		if f.Format != nil {
			if err := f.Format(v); err != nil {
				out = append(out, Violation{f.Name, err.Error()})
			}
		}
	}

	for _, f := range ints {
		if f.Value == nil {
			continue
		}
		v := *f.Value
		if f.Min != nil && v < *f.Min {
			out = append(out, Violation{f.Name,
				fmt.Sprintf("must be >= %d, got %d", *f.Min, v)})
		}
		if f.Max != nil && v > *f.Max {
			out = append(out, Violation{f.Name,
				fmt.Sprintf("must be <= %d, got %d", *f.Max, v)})
		}
	}

	return out
}

func intPtr(v int) *int { return &v }
