// Package gxerrors defines Graphix's structured error taxonomy: a
// PHASE### code space plus a Report/ReportError pair that survives
// errors.As() unwrapping, covering the five phases (parse, resolve,
// type, runtime, cast).
package gxerrors

// Parser errors (PAR###): "Parse errors... surface
// immediately with position."
const (
	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // missing closing delimiter
	PAR003 = "PAR003" // invalid lambda syntax
	PAR004 = "PAR004" // invalid module declaration
	PAR005 = "PAR005" // invalid pattern syntax
	PAR006 = "PAR006" // invalid type annotation
)

// Resolution errors (RES###): "Resolution errors —
// CouldNotResolve(modpath) aggregating the per-resolver failures."
const (
	RES001 = "RES001" // module path could not be resolved by any resolver
	RES002 = "RES002" // circular module dependency
	RES003 = "RES003" // sandbox excludes a name the program references
)

// Type errors (TYP###): "raised during typecheck; wrapped
// with ErrorContext(expr)."
const (
	TYP001 = "TYP001" // containment/unification failure
	TYP002 = "TYP002" // unbound name
	TYP003 = "TYP003" // recursive typedef would cycle
	TYP004 = "TYP004" // missing required struct field / variant arg
)

// Runtime value errors (RUN###): "produced during node
// update as a Value::Error payload."
const (
	RUN001 = "RUN001" // arithmetic error (div/mod by zero, non-numeric operand)
	RUN002 = "RUN002" // index out of range
	RUN003 = "RUN003" // map key not found
	RUN004 = "RUN004" // net operation failed
	RUN005 = "RUN005" // RPC call failed
)

// Cast errors (CST###): "produced by cast<T>(expr); result
// type is union(T, Error<CAST_ERR>)."
const (
	CST001 = "CST001" // value does not match target type
)

// Phase names, mirrored in Report.Phase.
const (
	PhaseParse    = "parse"
	PhaseResolve  = "resolve"
	PhaseTypecheck = "typecheck"
	PhaseRuntime  = "runtime"
	PhaseCast     = "cast"
)
