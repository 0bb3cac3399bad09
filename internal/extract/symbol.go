// Package extract recognizes symbol definitions in native source with line-level
// heuristics and recovers their extents by brace counting.
package extract

import (
	"regexp"
	"strings"
)

// Kind classifies where a symbol was found.
type Kind string

const (
	// DefinitionSite is a standalone procedure definition.
	DefinitionSite Kind = "definition-site"
	// RegistrationSite is a call binding an opcode number to a handler.
	RegistrationSite Kind = "registration-site"
	// DispatchCase is a branch inside a shared dispatch routine.
	DispatchCase Kind = "dispatch-case"
)

// Family names the naming convention a recognition rule matched.
type Family string

const (
	FamilyOpCamel      Family = "op-camel"      // opGetSelf
	FamilyOpSnake      Family = "op-snake"      // op_sqrt
	FamilyOpUnderscore Family = "op-underscore" // _op_sqrt, _opGetSelf
	FamilyOpArgCount   Family = "op-argcount"   // mf_car_gas_amount(Program*, int)
	FamilyAuxiliary    Family = "auxiliary"
	FamilyRegistration Family = "registration"
	FamilyDispatch     Family = "dispatch"
)

// IsOpcode reports whether the family names an opcode handler convention.
func (f Family) IsOpcode() bool {
	switch f {
	case FamilyOpCamel, FamilyOpSnake, FamilyOpUnderscore, FamilyOpArgCount:
		return true
	}
	return false
}

// Location is a 1-based, inclusive line range in a snapshot-relative file.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// Symbol is one detected definition, registration or dispatch branch.
type Symbol struct {
	Name string `json:"name"`
	Location
	Kind   Kind   `json:"kind"`
	Family Family `json:"family"`
	// Prefix is the naming-convention prefix that matched, e.g. "op_".
	Prefix string `json:"prefix,omitempty"`
	// Comment is the annotation found immediately above a definition.
	Comment string `json:"comment,omitempty"`
	// Handler and Opcode are set on registration sites; Annotation is their trailing comment.
	Handler    string `json:"handler,omitempty"`
	Opcode     string `json:"opcode,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	// DispatchKey is set on dispatch cases.
	DispatchKey string `json:"dispatchKey,omitempty"`
	// Seq is the position in scan order across all files.
	Seq int `json:"seq"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is shaped like a C identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// SplitLines splits source text into lines without terminators.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
