package parser

import (
	"strconv"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/lexer"
)

// parsePattern parses a let-binding or select-arm pattern:
// names, wildcards, literals, tuples, structs, and tagged variants, plus
// the `Type as name` refinement form used in select arms.
func (p *Parser) parsePattern() (ast.Pattern, error) {
	switch p.curToken.Type {
	case lexer.WILDCARD:
		p.next()
		return &ast.PatWildcard{}, nil

	case lexer.INT:
		n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer pattern %q", p.curToken.Literal)
		}
		p.next()
		return &ast.PatLiteral{Value: &ast.Literal{Kind: ast.LitI64, Value: n}}, nil

	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid float pattern %q", p.curToken.Literal)
		}
		p.next()
		return &ast.PatLiteral{Value: &ast.Literal{Kind: ast.LitF64, Value: f}}, nil

	case lexer.STRING:
		lit := p.curToken.Literal
		p.next()
		return &ast.PatLiteral{Value: &ast.Literal{Kind: ast.LitString, Value: lit}}, nil

	case lexer.TRUE, lexer.FALSE:
		v := p.curToken.Type == lexer.TRUE
		p.next()
		return &ast.PatLiteral{Value: &ast.Literal{Kind: ast.LitBool, Value: v}}, nil

	case lexer.NULLKW:
		p.next()
		return &ast.PatLiteral{Value: &ast.Literal{Kind: ast.LitNull, Value: nil}}, nil

	case lexer.LPAREN:
		p.next()
		var elems []ast.Pattern
		for !p.curIs(lexer.RPAREN) {
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, pat)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.PatTuple{Elements: elems}, nil

	case lexer.LBRACE:
		p.next()
		var fields []ast.PatStructField
		for !p.curIs(lexer.RBRACE) {
			name := p.curToken.Literal
			p.next()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.PatStructField{Name: name, Pattern: pat})
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return &ast.PatStruct{Fields: fields}, nil

	case lexer.BACKTICK:
		p.next()
		tag := p.curToken.Literal
		p.next()
		var elems []ast.Pattern
		if p.curIs(lexer.LPAREN) {
			p.next()
			for !p.curIs(lexer.RPAREN) {
				pat, err := p.parsePattern()
				if err != nil {
					return nil, err
				}
				elems = append(elems, pat)
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
		return &ast.PatVariant{Tag: tag, Elements: elems}, nil

	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		return &ast.PatBind{Name: name}, nil

	case lexer.TYNAME, lexer.ANYTY, lexer.U32, lexer.V32, lexer.I32, lexer.Z32, lexer.U64,
		lexer.V64, lexer.I64, lexer.Z64, lexer.F32, lexer.F64, lexer.DECIMAL, lexer.DATETIME,
		lexer.DURATION, lexer.BOOL, lexer.STRINGTY, lexer.BYTES, lexer.ARRAYKW, lexer.MAPKW:
		// `Type as name` refinement pattern, e.g. select arms on `any(...)`.
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !p.curIs(lexer.IDENT) || p.curToken.Literal != "as" {
			return nil, p.errorf("expected `as name` after type pattern %s", ty)
		}
		p.next()
		name := p.curToken.Literal
		p.next()
		return &ast.PatBind{Name: name, Type: ty}, nil

	default:
		return nil, p.errorf("unexpected token %q in pattern", p.curToken.Literal)
	}
}
