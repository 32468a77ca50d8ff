// Package formula evaluates the restricted arithmetic grammar used by rate
// formulas: + - * /, parentheses, numeric literals and named variables. No
// function calls, no side effects.
package formula

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Vars is the named variable set a formula is evaluated against.
type Vars map[string]decimal.Decimal

// Evaluate parses and evaluates a formula against the given variables.
// Referencing a variable that is not in the map is an error rather than an
// implicit zero: a formula asking for a weight the caller never supplied is a
// data problem the caller must see.
func Evaluate(expr string, vars Vars) (decimal.Decimal, error) {
	p := &parser{input: expr, vars: vars}
	result, err := p.parseExpression()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return decimal.Zero, apperrors.NewEvaluationError(
			fmt.Sprintf("unexpected character %q at position %d in %q", p.input[p.pos], p.pos, expr))
	}
	return result, nil
}

// Variables returns the distinct variable names referenced by a formula, in
// first-appearance order. Parse errors are reported the same way Evaluate
// reports them.
func Variables(expr string) ([]string, error) {
	p := &parser{input: expr, collect: true}
	if _, err := p.parseExpression(); err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, apperrors.NewEvaluationError(
			fmt.Sprintf("unexpected character %q at position %d in %q", p.input[p.pos], p.pos, expr))
	}
	return p.seen, nil
}

// Validate parses a formula without evaluating it.
func Validate(expr string) error {
	_, err := Variables(expr)
	return err
}

type parser struct {
	input   string
	pos     int
	vars    Vars
	collect bool
	seen    []string
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpression := term (('+'|'-') term)*
func (p *parser) parseExpression() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

// parseTerm := factor (('*'|'/') factor)*
func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			left = left.Mul(right)
		} else {
			if right.IsZero() {
				// Syntactic passes treat every variable as zero; only a real
				// evaluation can report division by zero.
				if p.collect {
					left = decimal.Zero
					continue
				}
				return decimal.Zero, apperrors.NewEvaluationError("division by zero in " + strings.TrimSpace(p.input))
			}
			left = left.Div(right)
		}
	}
}

// parseFactor := ['-'] (number | variable | '(' expression ')')
func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipSpaces()
	negate := false
	if p.peek() == '-' {
		negate = true
		p.pos++
		p.skipSpaces()
	}

	var value decimal.Decimal
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.parseExpression()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return decimal.Zero, apperrors.NewEvaluationError("missing closing parenthesis in " + strings.TrimSpace(p.input))
		}
		p.pos++
		value = inner
	case c >= '0' && c <= '9' || c == '.':
		num, err := p.parseNumber()
		if err != nil {
			return decimal.Zero, err
		}
		value = num
	case isIdentStart(rune(c)):
		name := p.parseIdent()
		v, err := p.lookupVariable(name)
		if err != nil {
			return decimal.Zero, err
		}
		value = v
	default:
		return decimal.Zero, apperrors.NewEvaluationError(
			fmt.Sprintf("unexpected token at position %d in %q", p.pos, p.input))
	}

	if negate {
		value = value.Neg()
	}
	return value, nil
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	num, err := decimal.NewFromString(p.input[start:p.pos])
	if err != nil {
		return decimal.Zero, apperrors.NewEvaluationError("invalid number " + p.input[start:p.pos])
	}
	return num, nil
}

func (p *parser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) lookupVariable(name string) (decimal.Decimal, error) {
	if p.collect {
		for _, s := range p.seen {
			if s == name {
				return decimal.Zero, nil
			}
		}
		p.seen = append(p.seen, name)
		return decimal.Zero, nil
	}
	v, ok := p.vars[name]
	if !ok {
		return decimal.Zero, apperrors.NewEvaluationError("unknown variable " + name)
	}
	return v, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
