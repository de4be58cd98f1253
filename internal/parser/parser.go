// Package parser implements a PEG-style recursive-descent parser with
// Pratt-style precedence climbing for binary operators: prefix/infix
// parse function tables keyed by token type. The parser fails with
// `parse error at <position>` and never silently recovers — the first
// error aborts parsing.
package parser

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/lexer"
)

// ParseError is the sole error shape the parser returns.
type ParseError struct {
	Pos     lexer.Token
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d: %s", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Message)
}

type (
	prefixParseFn func() (*ast.Expr, error)
	infixParseFn  func(*ast.Expr) (*ast.Expr, error)
)

// Precedence levels, lowest to highest.
const (
	LOWEST int = iota
	CONNECT // name <- value
	SAMPLE  // ~
	LOR     // ||
	LAND    // &&
	EQUALITY
	RELATIONAL
	ADDITIVE
	MULTIPLICATIVE
	POSTFIX // ?, $
	CALLIDX // f(x), a[i], a.b
)

var precedences = map[lexer.TokenType]int{
	lexer.LARROW:   CONNECT,
	lexer.TILDE:    SAMPLE,
	lexer.OR:       LOR,
	lexer.AND:      LAND,
	lexer.EQ:       EQUALITY,
	lexer.NEQ:      EQUALITY,
	lexer.LT:       RELATIONAL,
	lexer.GT:       RELATIONAL,
	lexer.LTE:      RELATIONAL,
	lexer.GTE:      RELATIONAL,
	lexer.PLUS:     ADDITIVE,
	lexer.MINUS:    ADDITIVE,
	lexer.STAR:     MULTIPLICATIVE,
	lexer.SLASH:    MULTIPLICATIVE,
	lexer.PERCENT:  MULTIPLICATIVE,
	lexer.QUESTION: POSTFIX,
	lexer.DOLLAR:   POSTFIX,
	lexer.LPAREN:   CALLIDX,
	lexer.LBRACKET: CALLIDX,
	lexer.DOT:      CALLIDX,
}

// Parser holds lexer state and the Pratt parse-function tables.
type Parser struct {
	l         *lexer.Lexer
	file      string
	origin    *ast.Origin
	curToken  lexer.Token
	peekToken lexer.Token
	doc       string // pending doc-comment for the next binding

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn
}

// New constructs a Parser over src, reporting positions against file
// and tagging every produced Expr with origin.
func New(src string, file string, origin *ast.Origin) *Parser {
	p := &Parser{l: lexer.New(src, file), file: file, origin: origin}
	p.prefixFns = map[lexer.TokenType]prefixParseFn{}
	p.infixFns = map[lexer.TokenType]infixParseFn{}
	p.registerPrefix()
	p.registerInfix()
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.curToken = p.peekToken
	for {
		p.peekToken = p.l.NextToken()
		if p.peekToken.Type == lexer.DOCCOMMENT {
			p.doc = p.peekToken.Literal
			continue
		}
		break
	}
}

func (p *Parser) curPos() ast.SourcePosition {
	return ast.SourcePosition{Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.curToken, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.curToken.Type != tt {
		return lexer.Token{}, p.errorf("expected token %d, got %q", tt, p.curToken.Literal)
	}
	tok := p.curToken
	p.next()
	return tok, nil
}

func (p *Parser) curIs(tt lexer.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekIs(tt lexer.TokenType) bool { return p.peekToken.Type == tt }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses the entire input as a sequence of top-level
// expressions/declarations (module decls, use, let, etc.), with
// optional `;` separators between them.
func ParseProgram(src, file string, origin *ast.Origin) ([]*ast.Expr, error) {
	p := New(src, file, origin)
	var exprs []*ast.Expr
	for {
		for p.curIs(lexer.SEMI) {
			p.next()
		}
		if p.curIs(lexer.EOF) {
			break
		}
		e, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func (p *Parser) parseTopLevel() (*ast.Expr, error) {
	return p.parseExpr(LOWEST)
}

func (p *Parser) parseExpr(precedence int) (*ast.Expr, error) {
	prefix, ok := p.prefixFns[p.curToken.Type]
	if !ok {
		return nil, p.errorf("unexpected token %q", p.curToken.Literal)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for !p.curIs(lexer.EOF) && precedence < precedences[p.curToken.Type] {
		infix, ok := p.infixFns[p.curToken.Type]
		if !ok {
			return left, nil
		}
		// Infix functions are entered with curToken on their operator; the
		// postfix `?` and `$` functions leave it there.
		postfix := p.curIs(lexer.QUESTION) || p.curIs(lexer.DOLLAR)
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
		if postfix {
			p.next()
		}
	}
	return left, nil
}

func (p *Parser) takeDoc() string {
	d := p.doc
	p.doc = ""
	return d
}
