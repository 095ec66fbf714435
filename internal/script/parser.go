package script

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

type node any

type (
	literal struct{ value any }

	// varRef is a bare identifier: a variable when one is set, otherwise a
	// Kernel call without arguments.
	varRef struct{ name string }

	constPath struct{ names []string }

	global struct{ name string }

	call struct {
		recv node // nil for Kernel calls
		name string
		args []node
	}

	assign struct {
		name  string
		value node
	}
)

type parser struct {
	toks []token
	pos  int
}

// parse parses one statement. It returns nil for blank and comment lines.
func parse(line string) (node, error) {
	toks, err := lex(line)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, nil
	}

	n, err := p.statement()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}

	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}

	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, fmt.Errorf("%w at column %d: expected %v, found %v", ErrSyntax, tok.pos+1, kind, tok.kind)
	}

	return tok, nil
}

func (p *parser) unexpected(tok token) error {
	return fmt.Errorf("%w at column %d: unexpected %v", ErrSyntax, tok.pos+1, tok.kind)
}

// statement := ident '=' expr | chain '.' name '=' expr | expr
func (p *parser) statement() (node, error) {
	if p.peek().kind == tokIdent && p.peekAt(1).kind == tokAssign {
		name := p.next().text
		p.next()

		value, err := p.expr()
		if err != nil {
			return nil, err
		}

		return &assign{name: name, value: value}, nil
	}

	n, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokAssign {
		return n, nil
	}

	// recv.attr = value calls the attr= setter.
	c, ok := n.(*call)
	if !ok || c.recv == nil || c.args != nil {
		return nil, p.unexpected(p.peek())
	}

	p.next()

	value, err := p.expr()
	if err != nil {
		return nil, err
	}

	return &call{recv: c.recv, name: c.name + "=", args: []node{value}}, nil
}

// expr := primary { '.' name [ '(' args ')' ] }
func (p *parser) expr() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokDot {
		p.next()

		tok, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}

		name := tok.text

		// name=(value) is an explicit setter call.
		if p.peek().kind == tokAssign && p.peekAt(1).kind == tokLParen {
			p.next()

			name += "="
		}

		var args []node

		if p.peek().kind == tokLParen {
			if args, err = p.args(); err != nil {
				return nil, err
			}
		}

		n = &call{recv: n, name: name, args: args}
	}

	return n, nil
}

func (p *parser) primary() (node, error) {
	tok := p.next()

	switch tok.kind {
	case tokInt:
		return &literal{value: tok.num}, nil
	case tokString:
		return &literal{value: tok.text}, nil
	case tokGlobal:
		return &global{name: tok.text}, nil
	case tokConst:
		names := []string{tok.text}

		for p.peek().kind == tokScope {
			p.next()

			next, err := p.expect(tokConst)
			if err != nil {
				return nil, err
			}

			names = append(names, next.text)
		}

		return &constPath{names: names}, nil
	case tokIdent:
		switch tok.text {
		case "nil":
			return &literal{value: nil}, nil
		case "true":
			return &literal{value: true}, nil
		case "false":
			return &literal{value: false}, nil
		}

		if p.peek().kind == tokLParen {
			args, err := p.args()
			if err != nil {
				return nil, err
			}

			return &call{name: tok.text, args: args}, nil
		}

		return &varRef{name: tok.text}, nil
	case tokLParen:
		n, err := p.expr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}

		return n, nil
	default:
		return nil, p.unexpected(tok)
	}
}

// args := '(' [ expr { ',' expr } ] ')'
// The result is non-nil even for an empty list, so f() and f differ.
func (p *parser) args() ([]node, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	args := []node{}

	if p.peek().kind == tokRParen {
		p.next()

		return args, nil
	}

	for {
		n, err := p.expr()
		if err != nil {
			return nil, err
		}

		args = append(args, n)

		tok := p.next()

		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return args, nil
		default:
			return nil, fmt.Errorf("%w at column %d: expected ',' or ')', found %v", ErrSyntax, tok.pos+1, tok.kind)
		}
	}
}
