package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Grammar:
//
//	expr     := operand ('+' operand)*
//	operand  := string | integer | variable
//	string   := "'" ( any char except "'" | "''" )* "'"
//	variable := '#' ident accessor*
//	accessor := '.' ident [ '(' ')' ] | '[' (string | integer) ']'
//
// Method calls take no arguments, so a template can read its arguments but
// never run code with inputs of its own.

// Template is a compiled key expression.
type Template struct {
	src   string
	parts []operand
}

type operand interface {
	eval(env map[string]any) (any, error)
}

type literal struct{ v any }

func (l literal) eval(map[string]any) (any, error) { return l.v, nil }

type variable struct {
	name string
	path []accessor
}

func (v variable) eval(env map[string]any) (any, error) {
	cur, ok := env[v.name]
	if !ok {
		return nil, fmt.Errorf("%w: #%s", ErrUnknownArgument, v.name)
	}
	var err error
	for _, a := range v.path {
		if cur, err = a.apply(cur); err != nil {
			return nil, fmt.Errorf("#%s: %w", v.name, err)
		}
	}
	return cur, nil
}

type accessKind uint8

const (
	accessProperty accessKind = iota
	accessCall
	accessIndex
)

type accessor struct {
	kind  accessKind
	name  string
	index any // string or int64
}

// Compile parses an expression template.
func Compile(src string) (*Template, error) {
	p := &parser{src: src}
	t := &Template{src: src}

	op, err := p.operand()
	if err != nil {
		return nil, err
	}
	t.parts = append(t.parts, op)
	for {
		p.skipSpace()
		if p.eof() {
			return t, nil
		}
		if p.peek() != '+' {
			return nil, p.errorf("unexpected %q", p.peek())
		}
		p.pos++
		if op, err = p.operand(); err != nil {
			return nil, err
		}
		t.parts = append(t.parts, op)
	}
}

func (t *Template) String() string { return t.src }

// Eval evaluates t with env binding argument names to values.
func (t *Template) Eval(env map[string]any) (any, error) {
	acc, err := t.parts[0].eval(env)
	if err != nil {
		return nil, err
	}
	for _, op := range t.parts[1:] {
		next, err := op.eval(env)
		if err != nil {
			return nil, err
		}
		if acc, err = plus(acc, next); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func plus(a, b any) (any, error) {
	_, as := asString(a)
	_, bs := asString(b)
	if as || bs {
		return stringify(a) + stringify(b), nil
	}
	x, xok := asInt(a)
	y, yok := asInt(b)
	if xok && yok {
		return x + y, nil
	}
	return nil, fmt.Errorf("%w: cannot add %T and %T", ErrEval, a, b)
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at %d: %s", ErrSyntax, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *parser) operand() (operand, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("expected operand")
	}
	switch c := p.peek(); {
	case c == '\'':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return literal{s}, nil
	case c == '#':
		return p.variable()
	case c == '-' || isDigit(c):
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		return literal{n}, nil
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if c == '\'' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	p.pos = start
	return "", p.errorf("unterminated string")
}

func (p *parser) integer() (int64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("bad integer")
	}
	return n, nil
}

func (p *parser) ident() (string, error) {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && (p.pos == start || !unicode.IsDigit(r)) {
			break
		}
		p.pos += size
	}
	if p.pos == start {
		return "", p.errorf("expected identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *parser) variable() (operand, error) {
	p.pos++ // '#'
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	v := variable{name: name}
	for !p.eof() {
		switch p.peek() {
		case '.':
			p.pos++
			m, err := p.ident()
			if err != nil {
				return nil, err
			}
			a := accessor{kind: accessProperty, name: m}
			if !p.eof() && p.peek() == '(' {
				p.pos++
				p.skipSpace()
				if p.eof() || p.peek() != ')' {
					return nil, p.errorf("method arguments are not supported")
				}
				p.pos++
				a.kind = accessCall
			}
			v.path = append(v.path, a)
		case '[':
			p.pos++
			p.skipSpace()
			if p.eof() {
				return nil, p.errorf("unterminated index")
			}
			a := accessor{kind: accessIndex}
			if p.peek() == '\'' {
				s, err := p.quoted()
				if err != nil {
					return nil, err
				}
				a.index = s
			} else if p.peek() == '-' || isDigit(p.peek()) {
				n, err := p.integer()
				if err != nil {
					return nil, err
				}
				a.index = n
			} else {
				return nil, p.errorf("index must be a string or integer")
			}
			p.skipSpace()
			if p.eof() || p.peek() != ']' {
				return nil, p.errorf("expected ']'")
			}
			p.pos++
			v.path = append(v.path, a)
		default:
			return v, nil
		}
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
