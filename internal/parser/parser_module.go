package parser

import (
	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/lexer"
)

// parseModule parses `[pub] mod name [{ body }|inline { body }|dynamic {... }]`,
// the three resolvable ModuleKind forms. A bare `mod name;`
// with no body declares an Unresolved module to be filled in by the
// resolver (see internal/resolve).
func (p *Parser) parseModule() (*ast.Expr, error) {
	pos := p.curPos()
	public := false
	if p.curIs(lexer.PUB) {
		public = true
		p.next()
	}
	if _, err := p.expect(lexer.MOD); err != nil {
		return nil, err
	}
	name := p.curToken.Literal
	p.next()

	decl := &ast.ModuleDecl{Name: name, Public: public, Kind: ast.ModuleUnresolved}

	switch {
	case p.curIs(lexer.IDENT) && p.curToken.Literal == "inline":
		p.next()
		body, err := p.parseModuleBody()
		if err != nil {
			return nil, err
		}
		decl.Kind = ast.ModuleInline
		decl.Inline = body

	case p.curIs(lexer.IDENT) && p.curToken.Literal == "dynamic":
		p.next()
		dyn, err := p.parseDynamicModule()
		if err != nil {
			return nil, err
		}
		decl.Kind = ast.ModuleDynamic
		decl.Dynamic = dyn

	case p.curIs(lexer.LBRACE):
		body, err := p.parseModuleBody()
		if err != nil {
			return nil, err
		}
		decl.Kind = ast.ModuleResolved
		decl.Body = body
	}

	return p.wrap(decl, pos), nil
}

func (p *Parser) parseModuleBody() ([]*ast.Expr, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var exprs []*ast.Expr
	for !p.curIs(lexer.RBRACE) {
		e, err := p.parseExpr(LOWEST)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.curIs(lexer.SEMI) {
			p.next()
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return exprs, nil
}

// parseDynamicModule parses `dynamic { sandbox...; sig {... }; source }`
//: a sandbox policy, a signature block, and the
// source-producing expression (typically `subscribe(...)`).
func (p *Parser) parseDynamicModule() (*ast.DynamicModule, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	dyn := &ast.DynamicModule{Sandbox: ast.SandboxUnrestricted}

	for p.curIs(lexer.IDENT) && p.curToken.Literal == "sandbox" {
		p.next()
		switch p.curToken.Literal {
		case "whitelist":
			dyn.Sandbox = ast.SandboxWhitelist
		case "blacklist":
			dyn.Sandbox = ast.SandboxBlacklist
		default:
			return nil, p.errorf("unknown sandbox kind %q", p.curToken.Literal)
		}
		p.next()
		if _, err := p.expect(lexer.LBRACKET); err != nil {
			return nil, err
		}
		for !p.curIs(lexer.RBRACKET) {
			dyn.SandboxList = append(dyn.SandboxList, p.curToken.Literal)
			p.next()
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		if p.curIs(lexer.SEMI) {
			p.next()
		}
	}

	if p.curIs(lexer.IDENT) && p.curToken.Literal == "sig" {
		p.next()
		if _, err := p.expect(lexer.LBRACE); err != nil {
			return nil, err
		}
		for !p.curIs(lexer.RBRACE) {
			if _, err := p.expect(lexer.IDENT); err != nil { // consume "val"
				return nil, err
			}
			name := p.curToken.Literal
			p.next()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			dyn.Sig = append(dyn.Sig, ast.SigEntry{Name: name, Type: ty})
			if p.curIs(lexer.SEMI) {
				p.next()
			}
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
	}

	src, err := p.parseExpr(LOWEST)
	if err != nil {
		return nil, err
	}
	dyn.Source = src

	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return dyn, nil
}
