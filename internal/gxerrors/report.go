package gxerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/graphix-lang/graphix/internal/ast"
)

// Report is Graphix's canonical structured error: a schema-versioned
// Code/Phase/Message/Data shape carrying ast.SourcePosition +
// ast.Origin and a Cause chain in the ErrChain<E> shape
// ({cause, error, ori, pos}).
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Origin  string         `json:"origin,omitempty"`
	Pos     *ast.SourcePosition `json:"pos,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Cause   *Report        `json:"cause,omitempty"`
}

// ReportError wraps a Report as an error so structured reports survive
// errors.As() unwrapping through ordinary Go error-handling code.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e == nil || e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain, if one is present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap returns r as an error.
func (r *Report) Wrap() error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders r deterministically (sorted map keys via
// encoding/json's default struct-field ordering).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewParseError builds a PAR### report with position
// "Parse errors — surface immediately with position."
func NewParseError(code string, origin *ast.Origin, pos ast.SourcePosition, msg string) *Report {
	return &Report{
		Schema:  "graphix.error/v1",
		Code:    code,
		Phase:   PhaseParse,
		Message: msg,
		Origin:  origin.String(),
		Pos:     &pos,
	}
}

// NewResolveError builds a RES001 report aggregating the per-resolver
// failures, in CouldNotResolve form.
func NewResolveError(modpath string, attempts []string) *Report {
	return &Report{
		Schema:  "graphix.error/v1",
		Code:    RES001,
		Phase:   PhaseResolve,
		Message: fmt.Sprintf("could not resolve module %q (tried: %s)", modpath, strings.Join(attempts, ", ")),
		Data:    map[string]any{"modpath": modpath, "attempts": attempts},
	}
}

// NewTypeError wraps err with ErrorContext(e): a short excerpt of the
// offending expression and its position.
func NewTypeError(code string, e *ast.Expr, err error) *Report {
	rep := &Report{
		Schema:  "graphix.error/v1",
		Code:    code,
		Phase:   PhaseTypecheck,
		Message: err.Error(),
	}
	if e != nil {
		rep.Pos = &e.Pos
		rep.Origin = e.Origin.String()
		rep.Data = map[string]any{"excerpt": excerpt(e)}
	}
	return rep
}

// excerpt renders a short one-line summary of e for error context,
// mirroring the "short excerpt of the offending expression"
// requires without needing a full pretty-printer round trip.
func excerpt(e *ast.Expr) string {
	s := e.Kind.String()
	const max = 60
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// NewGeneric wraps a plain runtime error with a RUN### code for
// contexts (builtins, Rt adapter failures) that don't have a dedicated
// constructor above.
func NewGeneric(phase, code string, err error) *Report {
	return &Report{
		Schema:  "graphix.error/v1",
		Code:    code,
		Phase:   phase,
		Message: err.Error(),
	}
}
