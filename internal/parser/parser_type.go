package parser

import (
	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/lexer"
)

// parseType parses a syntactic type expression. Types are
// not Pratt-climbed — the grammar has no infix type operators beyond
// `<...>` parameterization and `->`/`throws` inside fn types, both
// handled structurally below.
func (p *Parser) parseType() (ast.Type, error) {
	switch p.curToken.Type {
	case lexer.ANYTY:
		p.next()
		return &ast.TyAny{}, nil
	case lexer.WILDCARD:
		p.next()
		return &ast.TyInfer{}, nil

	case lexer.AMP:
		p.next()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.TyByRef{Inner: inner}, nil

	case lexer.LPAREN:
		p.next()
		var elems []ast.Type
		for !p.curIs(lexer.RPAREN) {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			return elems[0], nil
		}
		return &ast.TyTuple{Elements: elems}, nil

	case lexer.LBRACKET:
		p.next()
		var members []ast.Type
		for !p.curIs(lexer.RBRACKET) {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			members = append(members, t)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.TySet{Members: members}, nil

	case lexer.LBRACE:
		p.next()
		var fields []ast.TyStructField
		for !p.curIs(lexer.RBRACE) {
			name := p.curToken.Literal
			p.next()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.TyStructField{Name: name, Type: t})
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return &ast.TyStruct{Fields: fields}, nil

	case lexer.BACKTICK:
		p.next()
		tag := p.curToken.Literal
		p.next()
		var args []ast.Type
		if p.curIs(lexer.LPAREN) {
			p.next()
			for !p.curIs(lexer.RPAREN) {
				t, err := p.parseType()
				if err != nil {
					return nil, err
				}
				args = append(args, t)
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
		return &ast.TyVariant{Tag: tag, Args: args}, nil

	case lexer.ARRAYKW:
		p.next()
		if _, err := p.expect(lexer.LT); err != nil {
			return nil, err
		}
		el, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
		return &ast.TyArray{Element: el}, nil

	case lexer.MAPKW:
		p.next()
		if _, err := p.expect(lexer.LT); err != nil {
			return nil, err
		}
		k, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		v, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
		return &ast.TyMap{Key: k, Value: v}, nil

	case lexer.RESULT:
		p.next()
		if _, err := p.expect(lexer.LT); err != nil {
			return nil, err
		}
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
		return &ast.TyError{Inner: inner}, nil

	case lexer.FN:
		return p.parseFnType()

	case lexer.IDENT:
		if len(p.curToken.Literal) > 0 && p.curToken.Literal[0] == '\'' {
			name := p.curToken.Literal[1:]
			p.next()
			return &ast.TyVar{Name: name}, nil
		}
		return p.parseTyPath()

	case lexer.TYNAME, lexer.U32, lexer.V32, lexer.I32, lexer.Z32, lexer.U64, lexer.V64,
		lexer.I64, lexer.Z64, lexer.F32, lexer.F64, lexer.DECIMAL, lexer.DATETIME,
		lexer.DURATION, lexer.BOOL, lexer.STRINGTY, lexer.BYTES:
		return p.parseTyPath()

	default:
		return nil, p.errorf("expected type, got %q", p.curToken.Literal)
	}
}

func (p *Parser) parseTyPath() (ast.Type, error) {
	name := p.curToken.Literal
	p.next()
	scope := ""
	for p.curIs(lexer.DCOLON) {
		p.next()
		scope = name
		name = p.curToken.Literal
		p.next()
	}
	var params []ast.Type
	if p.curIs(lexer.LT) {
		p.next()
		for !p.curIs(lexer.GT) {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, t)
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
	return &ast.TyPath{Scope: scope, Name: name, Params: params}, nil
}

// parseFnType parses `fn<constraints>(args) -> rtype [throws T]`.
func (p *Parser) parseFnType() (ast.Type, error) {
	p.next() // consume 'fn'
	var constraints []ast.TyConstraint
	if p.curIs(lexer.LT) {
		p.next()
		for !p.curIs(lexer.GT) {
			tvar := p.curToken.Literal
			if len(tvar) > 0 && tvar[0] == '\'' {
				tvar = tvar[1:]
			}
			p.next()
			var bound ast.Type
			if p.curIs(lexer.COLON) {
				p.next()
				b, err := p.parseType()
				if err != nil {
					return nil, err
				}
				bound = b
			}
			constraints = append(constraints, ast.TyConstraint{TVar: tvar, Bound: bound})
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
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.TyFnArg
	var vargs *ast.TyFnArg
	for !p.curIs(lexer.RPAREN) {
		variadic := false
		optional := false
		if p.curIs(lexer.AT) {
			variadic = true
			p.next()
		}
		if p.curIs(lexer.QUESTION) {
			optional = true
			p.next()
		}
		label := ""
		if p.curIs(lexer.HASH) {
			p.next()
			label = p.curToken.Literal
			p.next()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		arg := ast.TyFnArg{Label: label, Optional: optional, Type: t}
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
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	var rtype ast.Type = &ast.TyAny{}
	if p.curIs(lexer.ARROW) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		rtype = t
	}
	var throws ast.Type
	if p.curIs(lexer.THROWS) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		throws = t
	}
	return &ast.TyFn{Constraints: constraints, Args: args, VArgs: vargs, Return: rtype, Throws: throws}, nil
}
