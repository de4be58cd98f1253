package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintExpr renders an expression back to Graphix source. For every
// parser-produced tree the output re-parses to a structurally equal tree
// (ignoring ExprId, Origin, and positions); nested operands are
// parenthesized conservatively, which is invisible to equality since
// grouping parens produce no node. MapLit has no surface syntax (it is
// constructed through the host API) and renders in struct notation.
func PrintExpr(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	return render(e)
}

// atomic reports whether e renders as a closed form that can appear as
// an operand or postfix base without parentheses: it either ends with a
// closing delimiter or is a single token.
func atomic(e *Expr) bool {
	switch e.Kind.(type) {
	case *Literal, *Name, *Reference, *Tuple, *Array, *Struct, *MapLit,
		*Variant, *StringInterpolate, *Cast, *Any, *Apply, *StructRef,
		*TupleRef, *ArrayRef, *ArraySlice, *MapRef, *Qop, *OrNever, *Do:
		return true
	}
	return false
}

// operand renders e for use inside a tighter-binding context, wrapping
// open-ended forms (lambdas, lets, binops, connects, samples) in parens.
func operand(e *Expr) string {
	if atomic(e) {
		return render(e)
	}
	return "(" + render(e) + ")"
}

// braced reports whether e's rendering starts with `{`, which would be
// misread as the arm block when it appears as a select argument.
func braced(e *Expr) bool {
	switch e.Kind.(type) {
	case *Struct, *Do, *MapLit, *StructWith:
		return true
	}
	return false
}

func render(e *Expr) string {
	switch k := e.Kind.(type) {
	case *Literal:
		return renderLiteral(k)

	case *Name:
		return k.Name

	case *Reference:
		return k.Name

	case *Let:
		var b strings.Builder
		b.WriteString("let ")
		if k.Rec {
			b.WriteString("rec ")
		}
		b.WriteString(PrintPattern(k.Pattern))
		if k.Type != nil {
			b.WriteString(": ")
			b.WriteString(PrintType(k.Type))
		}
		b.WriteString(" = ")
		b.WriteString(render(k.Value))
		return b.String()

	case *Lambda:
		var b strings.Builder
		b.WriteByte('|')
		for i, a := range k.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Label)
			if a.Type != nil {
				b.WriteString(": ")
				b.WriteString(PrintType(a.Type))
			}
		}
		if k.VArgs != nil {
			if len(k.Args) > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('@')
			b.WriteString(k.VArgs.Label)
			if k.VArgs.Type != nil {
				b.WriteString(": ")
				b.WriteString(PrintType(k.VArgs.Type))
			}
		}
		b.WriteByte('|')
		if k.RType != nil {
			b.WriteString(" -> ")
			b.WriteString(PrintType(k.RType))
		}
		if k.Throws != nil {
			b.WriteString(" throws ")
			b.WriteString(PrintType(k.Throws))
		}
		b.WriteByte(' ')
		b.WriteString(render(k.Body))
		return b.String()

	case *Apply:
		var b strings.Builder
		b.WriteString(operand(k.Func))
		b.WriteByte('(')
		for i, a := range k.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if a.Label != "" {
				b.WriteString(a.Label)
				b.WriteString(": ")
			}
			b.WriteString(render(a.Value))
		}
		b.WriteByte(')')
		return b.String()

	case *Tuple:
		return renderList("(", k.Elements, ")")

	case *Array:
		return renderList("[", k.Elements, "]")

	case *Struct:
		parts := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			parts[i] = f.Name + ": " + render(f.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case *StructWith:
		parts := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			parts[i] = f.Name + ": " + render(f.Value)
		}
		return "{" + operand(k.Base) + " with " + strings.Join(parts, ", ") + "}"

	case *MapLit:
		parts := make([]string, len(k.Keys))
		for i := range k.Keys {
			parts[i] = render(k.Keys[i]) + ": " + render(k.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case *Variant:
		if len(k.Args) == 0 {
			return "`" + k.Tag
		}
		return "`" + k.Tag + renderList("(", k.Args, ")")

	case *Select:
		var b strings.Builder
		b.WriteString("select ")
		if braced(k.Arg) {
			b.WriteString("(" + render(k.Arg) + ")")
		} else {
			b.WriteString(operand(k.Arg))
		}
		b.WriteString(" { ")
		for i, a := range k.Arms {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(PrintPattern(a.Pattern))
			if a.Guard != nil {
				b.WriteString(" if ")
				b.WriteString(operand(a.Guard))
			}
			b.WriteString(" => ")
			b.WriteString(render(a.Body))
		}
		b.WriteString(" }")
		return b.String()

	case *TryCatch:
		var b strings.Builder
		b.WriteString("try ")
		for i, s := range k.Body {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(render(s))
		}
		b.WriteString(" catch(")
		b.WriteString(k.CatchName)
		if k.Constraint != nil {
			b.WriteString(": ")
			b.WriteString(PrintType(k.Constraint))
		}
		b.WriteString(") => ")
		b.WriteString(render(k.Handler))
		return b.String()

	case *Qop:
		return operand(k.Expr) + "?"

	case *OrNever:
		return operand(k.Expr) + "$"

	case *ByRef:
		return "&" + operand(k.Expr)

	case *Deref:
		return "*" + operand(k.Expr)

	case *Connect:
		prefix := ""
		if k.Deref {
			prefix = "*"
		}
		return prefix + k.Name + " <- " + operand(k.Value)

	case *Cast:
		return "cast<" + PrintType(k.Type) + ">(" + render(k.Expr) + ")"

	case *StringInterpolate:
		var b strings.Builder
		b.WriteByte('"')
		for _, p := range k.Parts {
			if p.Expr != nil {
				b.WriteByte('[')
				b.WriteString(render(p.Expr))
				b.WriteByte(']')
			} else {
				b.WriteString(escapeString(p.Const))
			}
		}
		b.WriteByte('"')
		return b.String()

	case *Any:
		return "any" + renderList("(", k.Args, ")")

	case *Sample:
		return operand(k.Trigger) + " ~ " + operand(k.Arg)

	case *Do:
		parts := make([]string, len(k.Exprs))
		for i, s := range k.Exprs {
			parts[i] = render(s)
		}
		return "{ " + strings.Join(parts, "; ") + " }"

	case *BinOp:
		return operand(k.Left) + " " + k.Op.String() + " " + operand(k.Right)

	case *StructRef:
		return operand(k.Expr) + "." + k.Field

	case *TupleRef:
		return fmt.Sprintf("%s.%d", operand(k.Expr), k.Index)

	case *ArrayRef:
		return operand(k.Expr) + "[" + render(k.Index) + "]"

	case *ArraySlice:
		from, to := "", ""
		if k.From != nil {
			from = render(k.From)
		}
		if k.To != nil {
			to = render(k.To)
		}
		return operand(k.Expr) + "[" + from + ":" + to + "]"

	case *MapRef:
		return operand(k.Expr) + "[" + render(k.Key) + "]"

	case *Use:
		return "use " + strings.ReplaceAll(k.Path, "/", "::")

	case *TypeDecl:
		var b strings.Builder
		b.WriteString("type ")
		b.WriteString(k.Name)
		if len(k.Params) > 0 {
			b.WriteByte('<')
			for i, p := range k.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString("'" + p)
			}
			b.WriteByte('>')
		}
		b.WriteString(" = ")
		b.WriteString(PrintType(k.Def))
		return b.String()

	case *ModuleDecl:
		return renderModule(k)

	default:
		return e.Kind.String()
	}
}

func renderModule(k *ModuleDecl) string {
	var b strings.Builder
	if k.Public {
		b.WriteString("pub ")
	}
	b.WriteString("mod ")
	b.WriteString(k.Name)
	switch k.Kind {
	case ModuleInline:
		b.WriteString(" inline { ")
		b.WriteString(renderStmts(k.Inline))
		b.WriteString(" }")
	case ModuleResolved:
		b.WriteString(" { ")
		b.WriteString(renderStmts(k.Body))
		b.WriteString(" }")
	case ModuleDynamic:
		b.WriteString(" dynamic { ")
		d := k.Dynamic
		switch d.Sandbox {
		case SandboxWhitelist:
			b.WriteString("sandbox whitelist [" + strings.Join(d.SandboxList, ", ") + "]; ")
		case SandboxBlacklist:
			b.WriteString("sandbox blacklist [" + strings.Join(d.SandboxList, ", ") + "]; ")
		}
		if len(d.Sig) > 0 {
			b.WriteString("sig { ")
			for _, s := range d.Sig {
				b.WriteString("val " + s.Name + ": " + PrintType(s.Type) + "; ")
			}
			b.WriteString("}; ")
		}
		b.WriteString(render(d.Source))
		b.WriteString(" }")
	}
	return b.String()
}

func renderStmts(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, s := range exprs {
		parts[i] = render(s)
	}
	return strings.Join(parts, "; ")
}

func renderList(open string, es []*Expr, close string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = render(e)
	}
	return open + strings.Join(parts, ", ") + close
}

func renderLiteral(k *Literal) string {
	switch k.Kind {
	case LitBool:
		if b, _ := k.Value.(bool); b {
			return "true"
		}
		return "false"
	case LitNull:
		return "null"
	case LitString:
		s, _ := k.Value.(string)
		return "\"" + escapeString(s) + "\""
	case LitF32, LitF64, LitDecimal:
		f, _ := k.Value.(float64)
		out := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(out, ".e") {
			out += ".0"
		}
		return out
	default:
		return fmt.Sprintf("%v", k.Value)
	}
}

// escapeString escapes a constant run for emission inside a string
// literal. Brackets are escaped because an unescaped `[` opens an
// interpolation segment.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '[':
			b.WriteString(`\[`)
		case ']':
			b.WriteString(`\]`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PrintPattern renders a let/select pattern back to source.
func PrintPattern(p Pattern) string {
	switch pk := p.(type) {
	case *PatWildcard:
		return "_"
	case *PatBind:
		if pk.Type != nil {
			return PrintType(pk.Type) + " as " + pk.Name
		}
		return pk.Name
	case *PatLiteral:
		return renderLiteral(pk.Value)
	case *PatTuple:
		parts := make([]string, len(pk.Elements))
		for i, el := range pk.Elements {
			parts[i] = PrintPattern(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *PatStruct:
		parts := make([]string, len(pk.Fields))
		for i, f := range pk.Fields {
			parts[i] = f.Name + ": " + PrintPattern(f.Pattern)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *PatVariant:
		if len(pk.Elements) == 0 {
			return "`" + pk.Tag
		}
		parts := make([]string, len(pk.Elements))
		for i, el := range pk.Elements {
			parts[i] = PrintPattern(el)
		}
		return "`" + pk.Tag + "(" + strings.Join(parts, ", ") + ")"
	default:
		return p.String()
	}
}

// PrintType renders a syntactic type back to source, including the
// constraint list TyFn.String omits.
func PrintType(t Type) string {
	switch tk := t.(type) {
	case *TyFn:
		var b strings.Builder
		b.WriteString("fn")
		if len(tk.Constraints) > 0 {
			b.WriteByte('<')
			for i, c := range tk.Constraints {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString("'" + c.TVar)
				if c.Bound != nil {
					b.WriteString(": " + PrintType(c.Bound))
				}
			}
			b.WriteByte('>')
		}
		b.WriteByte('(')
		for i, a := range tk.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if a.Label != "" {
				if a.Optional {
					b.WriteByte('?')
				}
				b.WriteString("#" + a.Label + ": ")
			}
			b.WriteString(PrintType(a.Type))
		}
		if tk.VArgs != nil {
			if len(tk.Args) > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('@')
			if tk.VArgs.Label != "" {
				b.WriteString("#" + tk.VArgs.Label + ": ")
			}
			b.WriteString(PrintType(tk.VArgs.Type))
		}
		b.WriteString(") -> ")
		b.WriteString(PrintType(tk.Return))
		if tk.Throws != nil {
			b.WriteString(" throws " + PrintType(tk.Throws))
		}
		return b.String()

	case *TySet:
		parts := make([]string, len(tk.Members))
		for i, m := range tk.Members {
			parts[i] = PrintType(m)
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case *TyTuple:
		parts := make([]string, len(tk.Elements))
		for i, el := range tk.Elements {
			parts[i] = PrintType(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"

	case *TyStruct:
		parts := make([]string, len(tk.Fields))
		for i, f := range tk.Fields {
			parts[i] = f.Name + ": " + PrintType(f.Type)
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case *TyVariant:
		if len(tk.Args) == 0 {
			return "`" + tk.Tag
		}
		parts := make([]string, len(tk.Args))
		for i, a := range tk.Args {
			parts[i] = PrintType(a)
		}
		return "`" + tk.Tag + "(" + strings.Join(parts, ", ") + ")"

	case *TyArray:
		return "Array<" + PrintType(tk.Element) + ">"

	case *TyMap:
		return "Map<" + PrintType(tk.Key) + ", " + PrintType(tk.Value) + ">"

	case *TyError:
		return "result<" + PrintType(tk.Inner) + ">"

	case *TyByRef:
		return "&" + PrintType(tk.Inner)

	case *TyPath:
		name := tk.Name
		if tk.Scope != "" {
			name = tk.Scope + "::" + name
		}
		if len(tk.Params) == 0 {
			return name
		}
		parts := make([]string, len(tk.Params))
		for i, p := range tk.Params {
			parts[i] = PrintType(p)
		}
		return name + "<" + strings.Join(parts, ", ") + ">"

	default:
		return t.String()
	}
}
