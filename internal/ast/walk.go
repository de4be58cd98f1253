package ast

// Children returns e's direct Expr children, in source order, for
// generic tree folds (module resolution, the pretty-printer's
// round-trip checker, node-count diagnostics) that don't need to switch
// on every ExprKind themselves.
func Children(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	switch k := e.Kind.(type) {
	case *Literal, *Name, *Reference, *Use, *TypeDecl:
		return nil
	case *ModuleDecl:
		switch k.Kind {
		case ModuleInline:
			return k.Inline
		case ModuleResolved:
			return k.Body
		case ModuleDynamic:
			if k.Dynamic != nil {
				return []*Expr{k.Dynamic.Source}
			}
		}
		return nil
	case *Let:
		return []*Expr{k.Value}
	case *Lambda:
		return []*Expr{k.Body}
	case *Apply:
		out := make([]*Expr, 0, len(k.Args)+1)
		out = append(out, k.Func)
		for _, a := range k.Args {
			out = append(out, a.Value)
		}
		return out
	case *Tuple:
		return k.Elements
	case *Array:
		return k.Elements
	case *MapLit:
		out := make([]*Expr, 0, len(k.Keys)+len(k.Values))
		out = append(out, k.Keys...)
		out = append(out, k.Values...)
		return out
	case *Struct:
		out := make([]*Expr, 0, len(k.Fields))
		for _, f := range k.Fields {
			out = append(out, f.Value)
		}
		return out
	case *StructWith:
		out := make([]*Expr, 0, len(k.Fields)+1)
		out = append(out, k.Base)
		for _, f := range k.Fields {
			out = append(out, f.Value)
		}
		return out
	case *Variant:
		return k.Args
	case *Select:
		out := make([]*Expr, 0, len(k.Arms)*2+1)
		out = append(out, k.Arg)
		for _, arm := range k.Arms {
			if arm.Guard != nil {
				out = append(out, arm.Guard)
			}
			out = append(out, arm.Body)
		}
		return out
	case *TryCatch:
		out := make([]*Expr, 0, len(k.Body)+1)
		out = append(out, k.Body...)
		out = append(out, k.Handler)
		return out
	case *Qop:
		return []*Expr{k.Expr}
	case *OrNever:
		return []*Expr{k.Expr}
	case *ByRef:
		return []*Expr{k.Expr}
	case *Deref:
		return []*Expr{k.Expr}
	case *Connect:
		return []*Expr{k.Value}
	case *Cast:
		return []*Expr{k.Expr}
	case *StringInterpolate:
		var out []*Expr
		for _, p := range k.Parts {
			if p.Expr != nil {
				out = append(out, p.Expr)
			}
		}
		return out
	case *Any:
		return k.Args
	case *Sample:
		return []*Expr{k.Trigger, k.Arg}
	case *Do:
		return k.Exprs
	case *BinOp:
		return []*Expr{k.Left, k.Right}
	case *StructRef:
		return []*Expr{k.Expr}
	case *TupleRef:
		return []*Expr{k.Expr}
	case *ArrayRef:
		return []*Expr{k.Expr, k.Index}
	case *ArraySlice:
		out := []*Expr{k.Expr}
		if k.From != nil {
			out = append(out, k.From)
		}
		if k.To != nil {
			out = append(out, k.To)
		}
		return out
	case *MapRef:
		return []*Expr{k.Expr, k.Key}
	default:
		return nil
	}
}
