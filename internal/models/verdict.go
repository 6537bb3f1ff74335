package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Class is one of the closed set of Big-O labels a verdict may carry.
// The set is ordered from cheapest to most expensive so classifiers can
// compare and raise classes without string matching.
type Class int

const (
	ClassConstant Class = iota
	ClassLogarithmic
	ClassSqrt
	ClassLinear
	ClassLinearithmic
	ClassQuadratic
	ClassCubic
	ClassExponential
	ClassFactorial
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassConstant:
		return "O(1)"
	case ClassLogarithmic:
		return "O(log n)"
	case ClassSqrt:
		return "O(sqrt n)"
	case ClassLinear:
		return "O(n)"
	case ClassLinearithmic:
		return "O(n log n)"
	case ClassQuadratic:
		return "O(n^2)"
	case ClassCubic:
		return "O(n^3)"
	case ClassExponential:
		return "O(2^n)"
	case ClassFactorial:
		return "O(n!)"
	default:
		return "unknown"
	}
}

// IsSpaceClass reports whether c may appear as a space complexity label.
// Space verdicts are capped at O(n^2); exponential or factorial space is
// never emitted.
func (c Class) IsSpaceClass() bool {
	return c <= ClassQuadratic || c == ClassUnknown
}

// ParseClass maps an external label onto the closed class set. It is the
// single entry point for text produced outside this package, so no
// free-form string can become a Class. Common spelling variants
// (O(nlogn), O(n**2), O(n²), uppercase N) are accepted.
func ParseClass(label string) (Class, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "**", "^")
	key = strings.ReplaceAll(key, "²", "^2")
	key = strings.ReplaceAll(key, "³", "^3")
	key = strings.ReplaceAll(key, "√n", "sqrtn")
	key = strings.ReplaceAll(key, "·", "")
	key = strings.ReplaceAll(key, "*", "")

	switch key {
	case "o(1)", "o(c)", "constant":
		return ClassConstant, true
	case "o(logn)", "o(log(n))", "o(lgn)":
		return ClassLogarithmic, true
	case "o(sqrtn)", "o(sqrt(n))", "o(n^0.5)":
		return ClassSqrt, true
	case "o(n)", "linear":
		return ClassLinear, true
	case "o(nlogn)", "o(nlog(n))", "o(nlgn)":
		return ClassLinearithmic, true
	case "o(n^2)", "o(n2)":
		return ClassQuadratic, true
	case "o(n^3)", "o(n3)":
		return ClassCubic, true
	// "O(2n)" is deliberately absent: with constants and "*" stripped it
	// is indistinguishable from a sloppy linear label, so it is rejected
	// rather than guessed at.
	case "o(2^n)", "exponential":
		return ClassExponential, true
	case "o(n!)", "factorial":
		return ClassFactorial, true
	case "unknown", "o(?)":
		return ClassUnknown, true
	default:
		return ClassUnknown, false
	}
}

// MarshalJSON renders the canonical label so verdict output never leaks
// enum ordinals.
func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Class) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, ok := ParseClass(label)
	if !ok {
		return fmt.Errorf("complexity label %q is not in the closed class set", label)
	}
	*c = parsed
	return nil
}

// Source records which classifier produced a verdict.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceRemote    Source = "remote"
)

// Verdict is the terminal per-function result. Loops and Recursion echo
// the collected structural signals for display.
type Verdict struct {
	Function   string `json:"function"`
	File       string `json:"file,omitempty"`
	TimeClass  Class  `json:"big_o"`
	SpaceClass Class  `json:"space_complexity"`
	Source     Source `json:"source"`
	Loops      int    `json:"loops"`
	Recursion  int    `json:"recursion"`
	EarlyExit  bool   `json:"early_exit,omitempty"`
}

// FileError is a per-file diagnostic for sources that could not be parsed.
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Report aggregates the verdicts of one analysis run.
type Report struct {
	Files            []string       `json:"files_analyzed"`
	Verdicts         []Verdict      `json:"verdicts"`
	Errors           []FileError    `json:"errors,omitempty"`
	TotalFunctions   int            `json:"total_functions"`
	VerdictsBySource map[string]int `json:"verdicts_by_source"`
	AnalysisDuration string         `json:"analysis_duration"`
}

func NewReport() *Report {
	return &Report{
		Files:            make([]string, 0),
		Verdicts:         make([]Verdict, 0),
		VerdictsBySource: make(map[string]int),
	}
}

func (r *Report) AddVerdict(v Verdict) {
	r.Verdicts = append(r.Verdicts, v)
	r.TotalFunctions++
	r.VerdictsBySource[string(v.Source)]++
}

func (r *Report) AddError(file string, err error) {
	r.Errors = append(r.Errors, FileError{File: file, Message: err.Error()})
}
