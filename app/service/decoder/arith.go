package decoder

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxDepth = 64

var (
	errSyntax   = errors.New("syntax error")
	errDivZero  = errors.New("division by zero")
	errTooDeep  = errors.New("expression nested too deeply")
	errOverflow = errors.New("result out of range")
)

// evaluate computes an expression made of numbers, unary signs, + - * / (or
// × ÷) and parentheses. Anything else is a syntax error.
func evaluate(expr string) (float64, error) {
	p := &parser{src: expr}

	value, err := p.expr(0)
	if err != nil {
		return 0, err
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, errSyntax
	}

	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, errOverflow
	}

	return value, nil
}

// formatNumber renders whole numbers without a decimal point.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

// peek returns the next operator or parenthesis with × and ÷ folded into * and /.
func (p *parser) peek() (op rune, size int) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, 0
	}

	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	switch r {
	case '×':
		return '*', size
	case '÷':
		return '/', size
	default:
		return r, size
	}
}

func (p *parser) expr(depth int) (float64, error) {
	left, err := p.term(depth)
	if err != nil {
		return 0, err
	}

	for {
		op, size := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos += size

		right, err := p.term(depth)
		if err != nil {
			return 0, err
		}

		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term(depth int) (float64, error) {
	left, err := p.unary(depth)
	if err != nil {
		return 0, err
	}

	for {
		op, size := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos += size

		right, err := p.unary(depth)
		if err != nil {
			return 0, err
		}

		if op == '*' {
			left *= right
			continue
		}

		if right == 0 {
			return 0, errDivZero
		}
		left /= right
	}
}

func (p *parser) unary(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, errTooDeep
	}

	op, size := p.peek()
	switch op {
	case '+', '-':
		p.pos += size

		value, err := p.unary(depth + 1)
		if err != nil {
			return 0, err
		}
		if op == '-' {
			value = -value
		}
		return value, nil
	case '(':
		p.pos += size

		value, err := p.expr(depth + 1)
		if err != nil {
			return 0, err
		}

		closing, size := p.peek()
		if closing != ')' {
			return 0, errSyntax
		}
		p.pos += size

		return value, nil
	default:
		return p.number()
	}
}

func (p *parser) number() (float64, error) {
	p.skipSpace()
	start := p.pos

	digits := 0
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
		digits++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		return 0, errSyntax
	}

	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		expStart := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == expStart {
			return 0, errSyntax
		}
	}

	value, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, errSyntax
	}

	return value, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
