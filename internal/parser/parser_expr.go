package parser

import (
	"strconv"
	"strings"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/lexer"
)

func (p *Parser) registerPrefix() {
	p.prefixFns[lexer.INT] = p.parseIntLiteral
	p.prefixFns[lexer.FLOAT] = p.parseFloatLiteral
	p.prefixFns[lexer.STRING] = p.parseStringLiteral
	p.prefixFns[lexer.TRUE] = p.parseBoolLiteral
	p.prefixFns[lexer.FALSE] = p.parseBoolLiteral
	p.prefixFns[lexer.NULLKW] = p.parseNullLiteral
	p.prefixFns[lexer.IDENT] = p.parseIdent
	p.prefixFns[lexer.TYNAME] = p.parseIdent
	p.prefixFns[lexer.WILDCARD] = p.parseIdent
	p.prefixFns[lexer.LPAREN] = p.parseParenOrTuple
	p.prefixFns[lexer.LBRACE] = p.parseBlockOrStructOrMap
	p.prefixFns[lexer.LBRACKET] = p.parseArray
	p.prefixFns[lexer.PIPE] = p.parseLambda
	p.prefixFns[lexer.LET] = p.parseLet
	p.prefixFns[lexer.SELECT] = p.parseSelect
	p.prefixFns[lexer.TRY] = p.parseTryCatch
	p.prefixFns[lexer.AMP] = p.parseByRef
	p.prefixFns[lexer.STAR] = p.parseDerefOrConnectDeref
	p.prefixFns[lexer.MINUS] = p.parseUnaryMinus
	p.prefixFns[lexer.NOT] = p.parseUnaryNot
	p.prefixFns[lexer.CAST] = p.parseCast
	p.prefixFns[lexer.ANYKW] = p.parseAny
	p.prefixFns[lexer.BACKTICK] = p.parseVariant
	p.prefixFns[lexer.MOD] = p.parseModule
	p.prefixFns[lexer.PUB] = p.parseModule
	p.prefixFns[lexer.USE] = p.parseUse
	p.prefixFns[lexer.TYPE] = p.parseTypeDecl
}

// parseTypeDecl parses `type Name<'a, ...> = T`.
func (p *Parser) parseTypeDecl() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'type'
	if !p.curIs(lexer.TYNAME) {
		return nil, p.errorf("type name must start with an upper-case letter, got %q", p.curToken.Literal)
	}
	name := p.curToken.Literal
	p.next()
	var params []string
	if p.curIs(lexer.LT) {
		p.next()
		for !p.curIs(lexer.GT) {
			tv := p.curToken.Literal
			if len(tv) == 0 || tv[0] != '\'' {
				return nil, p.errorf("expected type variable, got %q", tv)
			}
			params = append(params, tv[1:])
			p.next()
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	def, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.TypeDecl{Name: name, Params: params, Def: def}, pos), nil
}

func (p *Parser) registerInfix() {
	for _, tt := range []lexer.TokenType{lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NEQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE, lexer.AND, lexer.OR} {
		p.infixFns[tt] = p.parseBinOp
	}
	p.infixFns[lexer.TILDE] = p.parseSample
	p.infixFns[lexer.LARROW] = p.parseConnect
	p.infixFns[lexer.QUESTION] = p.parseQop
	p.infixFns[lexer.DOLLAR] = p.parseOrNever
	p.infixFns[lexer.LPAREN] = p.parseApply
	p.infixFns[lexer.LBRACKET] = p.parseIndexOrSlice
	p.infixFns[lexer.DOT] = p.parseDotAccess
}

func (p *Parser) wrap(kind ast.ExprKind, pos ast.SourcePosition) *ast.Expr {
	return ast.New(kind, p.origin, pos)
}

func (p *Parser) parseIntLiteral() (*ast.Expr, error) {
	pos := p.curPos()
	n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid integer literal %q", p.curToken.Literal)
	}
	p.next()
	return p.wrap(&ast.Literal{Kind: ast.LitI64, Value: n}, pos), nil
}

func (p *Parser) parseFloatLiteral() (*ast.Expr, error) {
	pos := p.curPos()
	f, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		return nil, p.errorf("invalid float literal %q", p.curToken.Literal)
	}
	p.next()
	return p.wrap(&ast.Literal{Kind: ast.LitF64, Value: f}, pos), nil
}

func (p *Parser) parseBoolLiteral() (*ast.Expr, error) {
	pos := p.curPos()
	v := p.curToken.Type == lexer.TRUE
	p.next()
	return p.wrap(&ast.Literal{Kind: ast.LitBool, Value: v}, pos), nil
}

func (p *Parser) parseNullLiteral() (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	return p.wrap(&ast.Literal{Kind: ast.LitNull, Value: nil}, pos), nil
}

// parseStringLiteral lifts a raw `...[expr]...` literal into a
// StringInterpolate node, splitting constant text from bracketed
// sub-expressions and re-parsing each sub-expression with a fresh
// Parser.
func (p *Parser) parseStringLiteral() (*ast.Expr, error) {
	pos := p.curPos()
	raw := p.curToken.Literal
	p.next()

	var parts []ast.StringPart
	var buf strings.Builder
	i := 0
	for i < len(raw) {
		ch := raw[i]
		if ch == '\\' && i+1 < len(raw) {
			buf.WriteByte(unescape(raw[i+1]))
			i += 2
			continue
		}
		if ch == '[' {
			if buf.Len() > 0 {
				parts = append(parts, ast.StringPart{Const: buf.String()})
				buf.Reset()
			}
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '[':
					depth++
				case ']':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			inner := raw[i+1 : j]
			sub := New(inner, p.file, p.origin)
			subExpr, err := sub.parseExpr(LOWEST)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.StringPart{Expr: subExpr})
			i = j + 1
			continue
		}
		buf.WriteByte(ch)
		i++
	}
	if buf.Len() > 0 || len(parts) == 0 {
		parts = append(parts, ast.StringPart{Const: buf.String()})
	}
	if len(parts) == 1 && parts[0].Expr == nil {
		return p.wrap(&ast.Literal{Kind: ast.LitString, Value: parts[0].Const}, pos), nil
	}
	return p.wrap(&ast.StringInterpolate{Parts: parts}, pos), nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return c
	}
}

// parseIdent parses a bare or module-qualified name (`x`, `foo::bar::x`).
func (p *Parser) parseIdent() (*ast.Expr, error) {
	pos := p.curPos()
	name := p.curToken.Literal
	p.next()
	for p.curIs(lexer.DCOLON) && (p.peekIs(lexer.IDENT) || p.peekIs(lexer.TYNAME)) {
		p.next()
		name += "::" + p.curToken.Literal
		p.next()
	}
	return p.wrap(&ast.Name{Name: name}, pos), nil
}

// parseParenOrTuple parses `(expr)` or `(e0, e1, ...)`; a single
// parenthesized expression is not a Tuple.
func (p *Parser) parseParenOrTuple() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '('
	if p.curIs(lexer.RPAREN) {
		p.next()
		return p.wrap(&ast.Literal{Kind: ast.LitNull, Value: nil}, pos), nil
	}
	first, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.RPAREN) {
		p.next()
		return first, nil
	}
	elems := []*ast.Expr{first}
	for p.curIs(lexer.COMMA) {
		p.next()
		e, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Tuple{Elements: elems}, pos), nil
}

func (p *Parser) parseArray() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '['
	var elems []*ast.Expr
	for !p.curIs(lexer.RBRACKET) {
		e, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Array{Elements: elems}, pos), nil
}

// parseBlockOrStructOrMap disambiguates `{ e0; e1 }` (do-block),
// `{name: value, ...}` (struct), and `{ base with field: value }`.
func (p *Parser) parseBlockOrStructOrMap() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '{'
	if p.curIs(lexer.RBRACE) {
		p.next()
		return p.wrap(&ast.Struct{}, pos), nil
	}

	if p.looksLikeStructField() {
		return p.finishStruct(pos, nil)
	}

	first, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}

	if p.curIs(lexer.IDENT) && p.curToken.Literal == "with" {
		p.next()
		return p.finishStruct(pos, first)
	}

	if p.curIs(lexer.SEMI) {
		exprs := []*ast.Expr{first}
		for p.curIs(lexer.SEMI) {
			p.next()
			e, err := p.parseExpr(LOWEST)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return p.wrap(&ast.Do{Exprs: exprs}, pos), nil
	}

	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Do{Exprs: []*ast.Expr{first}}, pos), nil
}

func (p *Parser) looksLikeStructField() bool {
	return (p.curIs(lexer.IDENT) || p.curIs(lexer.TYNAME)) && p.peekIs(lexer.COLON)
}

func (p *Parser) finishStruct(pos ast.SourcePosition, base *ast.Expr) (*ast.Expr, error) {
	var fields []ast.StructField
	for !p.curIs(lexer.RBRACE) {
		name := p.curToken.Literal
		p.next()
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Name: name, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	if base != nil {
		return p.wrap(&ast.StructWith{Base: base, Fields: fields}, pos), nil
	}
	return p.wrap(&ast.Struct{Fields: fields}, pos), nil
}

func (p *Parser) parseLambda() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '|'
	var args []ast.LambdaArg
	var vargs *ast.LambdaArg
	for !p.curIs(lexer.PIPE) {
		variadic := false
		if p.curIs(lexer.AT) {
			variadic = true
			p.next()
		}
		label := p.curToken.Literal
		p.next()
		var ty ast.Type
		if p.curIs(lexer.COLON) {
			p.next()
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			ty = t
		}
		arg := ast.LambdaArg{Label: label, Type: ty}
		if variadic {
			vargs = &arg
		} else {
			args = append(args, arg)
		}
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.PIPE); err != nil {
		return nil, err
	}
	var rtype, throws ast.Type
	if p.curIs(lexer.ARROW) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		rtype = t
	}
	if p.curIs(lexer.THROWS) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		throws = t
	}
	body, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Lambda{Args: args, VArgs: vargs, RType: rtype, Throws: throws, Body: body}, pos), nil
}

func (p *Parser) parseLet() (*ast.Expr, error) {
	pos := p.curPos()
	_ = p.takeDoc()
	p.next() // consume 'let'
	rec := false
	if p.curIs(lexer.REC) {
		rec = true
		p.next()
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	var ty ast.Type
	if p.curIs(lexer.COLON) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ty = t
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Let{Rec: rec, Pattern: pat, Type: ty, Value: val}, pos), nil
}

func (p *Parser) parseSelect() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'select'
	arg, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var arms []ast.SelectArm
	for !p.curIs(lexer.RBRACE) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		var guard *ast.Expr
		if p.curIs(lexer.IF) {
			p.next()
			g, err := p.parseExpr(LOWEST)
			if err != nil {
				return nil, err
			}
			guard = g
		}
		if _, err := p.expect(lexer.FARROW); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.SelectArm{Pattern: pat, Guard: guard, Body: body})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Select{Arg: arg, Arms: arms}, pos), nil
}

func (p *Parser) parseTryCatch() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'try'
	var body []*ast.Expr
	first, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	body = append(body, first)
	for p.curIs(lexer.SEMI) {
		p.next()
		e, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		body = append(body, e)
	}
	if _, err := p.expect(lexer.CATCH); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	name := p.curToken.Literal
	p.next()
	var constraint ast.Type
	if p.curIs(lexer.COLON) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		constraint = t
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.FARROW); err != nil {
		return nil, err
	}
	handler, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.TryCatch{Body: body, CatchName: name, Constraint: constraint, Handler: handler}, pos), nil
}

func (p *Parser) parseByRef() (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	e, err := p.parseExpr(MULTIPLICATIVE)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.ByRef{Expr: e}, pos), nil
}

// parseDerefOrConnectDeref handles both `*expr` and `*name <- value`.
func (p *Parser) parseDerefOrConnectDeref() (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	if p.curIs(lexer.IDENT) && p.peekIs(lexer.LARROW) {
		name := p.curToken.Literal
		p.next()
		p.next() // consume '<-'
		val, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		return p.wrap(&ast.Connect{Name: name, Value: val, Deref: true}, pos), nil
	}
	e, err := p.parseExpr(MULTIPLICATIVE)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Deref{Expr: e}, pos), nil
}

func (p *Parser) parseUnaryMinus() (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	e, err := p.parseExpr(MULTIPLICATIVE)
	if err != nil {
		return nil, err
	}
	zero := p.wrap(&ast.Literal{Kind: ast.LitI64, Value: int64(0)}, pos)
	return p.wrap(&ast.BinOp{Op: ast.OpSub, Left: zero, Right: e}, pos), nil
}

func (p *Parser) parseUnaryNot() (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	e, err := p.parseExpr(MULTIPLICATIVE)
	if err != nil {
		return nil, err
	}
	truth := p.wrap(&ast.Literal{Kind: ast.LitBool, Value: true}, pos)
	return p.wrap(&ast.BinOp{Op: ast.OpNeq, Left: e, Right: truth}, pos), nil
}

func (p *Parser) parseCast() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'cast'
	if _, err := p.expect(lexer.LT); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.GT); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Cast{Type: ty, Expr: e}, pos), nil
}

func (p *Parser) parseAny() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'any'
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []*ast.Expr
	for !p.curIs(lexer.RPAREN) {
		e, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Any{Args: args}, pos), nil
}

func (p *Parser) parseVariant() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '`'
	tag := p.curToken.Literal
	p.next()
	var args []*ast.Expr
	if p.curIs(lexer.LPAREN) {
		p.next()
		for !p.curIs(lexer.RPAREN) {
			e, err := p.parseExpr(LOWEST)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	return p.wrap(&ast.Variant{Tag: tag, Args: args}, pos), nil
}

func (p *Parser) parseUse() (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume 'use'
	path, err := p.parseModPath()
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Use{Path: path}, pos), nil
}

func (p *Parser) parseModPath() (string, error) {
	var parts []string
	for {
		if !p.curIs(lexer.IDENT) && !p.curIs(lexer.TYNAME) {
			return "", p.errorf("expected module path segment, got %q", p.curToken.Literal)
		}
		parts = append(parts, p.curToken.Literal)
		p.next()
		if p.curIs(lexer.DCOLON) {
			p.next()
			continue
		}
		break
	}
	return strings.Join(parts, "/"), nil
}

// ---- infix ---------------------------------------------------------

var binOpKinds = map[lexer.TokenType]ast.BinOpKind{
	lexer.PLUS: ast.OpAdd, lexer.MINUS: ast.OpSub, lexer.STAR: ast.OpMul,
	lexer.SLASH: ast.OpDiv, lexer.PERCENT: ast.OpMod, lexer.EQ: ast.OpEq,
	lexer.NEQ: ast.OpNeq, lexer.LT: ast.OpLt, lexer.LTE: ast.OpLte,
	lexer.GT: ast.OpGt, lexer.GTE: ast.OpGte, lexer.AND: ast.OpAnd, lexer.OR: ast.OpOr,
}

func (p *Parser) parseBinOp(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	op := binOpKinds[p.curToken.Type]
	prec := precedences[p.curToken.Type]
	p.next()
	right, err := p.parseExpr(prec)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.BinOp{Op: op, Left: left, Right: right}, pos), nil
}

func (p *Parser) parseSample(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	p.next()
	right, err := p.parseExpr(SAMPLE)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Sample{Trigger: left, Arg: right}, pos), nil
}

func (p *Parser) parseConnect(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	name, ok := left.Kind.(*ast.Name)
	if !ok {
		return nil, p.errorf("left side of <- must be a name")
	}
	p.next()
	val, err := p.parseExpr(CONNECT)
	if err != nil {
		return nil, err
	}
	return p.wrap(&ast.Connect{Name: name.Name, Value: val}, pos), nil
}

func (p *Parser) parseQop(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	return p.wrap(&ast.Qop{Expr: left}, pos), nil
}

func (p *Parser) parseOrNever(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	return p.wrap(&ast.OrNever{Expr: left}, pos), nil
}

// parseApply is entered with curToken == '(' (parseExpr dispatches infix
// functions on the current token without consuming it).
func (p *Parser) parseApply(fn *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '('
	var args []ast.ApplyArg
	sawAnon := false
	for !p.curIs(lexer.RPAREN) {
		label := ""
		if p.curIs(lexer.IDENT) && p.peekIs(lexer.COLON) {
			label = p.curToken.Literal
			p.next()
			p.next()
			if sawAnon {
				return nil, p.errorf("labeled argument %q must precede anonymous arguments", label)
			}
		} else {
			sawAnon = true
		}
		val, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.ApplyArg{Label: label, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return p.wrap(&ast.Apply{Func: fn, Args: args}, pos), nil
}

func (p *Parser) parseIndexOrSlice(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '['
	if p.curIs(lexer.COLON) {
		p.next()
		to, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return p.wrap(&ast.ArraySlice{Expr: left, To: to}, pos), nil
	}
	first, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.COLON) {
		p.next()
		var to *ast.Expr
		if !p.curIs(lexer.RBRACKET) {
			t, err := p.parseExpr(LOWEST)
			if err != nil {
				return nil, err
			}
			to = t
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return p.wrap(&ast.ArraySlice{Expr: left, From: first, To: to}, pos), nil
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return p.wrap(&ast.ArrayRef{Expr: left, Index: first}, pos), nil
}

func (p *Parser) parseDotAccess(left *ast.Expr) (*ast.Expr, error) {
	pos := p.curPos()
	p.next() // consume '.'
	if p.curIs(lexer.INT) {
		n, err := strconv.Atoi(p.curToken.Literal)
		if err != nil {
			return nil, p.errorf("invalid tuple index %q", p.curToken.Literal)
		}
		p.next()
		return p.wrap(&ast.TupleRef{Expr: left, Index: n}, pos), nil
	}
	field := p.curToken.Literal
	p.next()
	return p.wrap(&ast.StructRef{Expr: left, Field: field}, pos), nil
}
