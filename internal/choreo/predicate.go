package choreo

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Predicate is a compiled when-filter evaluated against a signal payload.
//
// Predicates never error at runtime: a comparison against a missing payload
// field evaluates false, mirroring the fail-open policy for runtime
// resolution elsewhere in the engine.
type Predicate interface {
	Eval(payload map[string]any) bool
}

// andPredicate evaluates true when every term does.
type andPredicate struct{ terms []Predicate }

func (p andPredicate) Eval(payload map[string]any) bool {
	for _, t := range p.terms {
		if !t.Eval(payload) {
			return false
		}
	}
	return true
}

// orPredicate evaluates true when any term does.
type orPredicate struct{ terms []Predicate }

func (p orPredicate) Eval(payload map[string]any) bool {
	for _, t := range p.terms {
		if t.Eval(payload) {
			return true
		}
	}
	return false
}

// comparison is `path op literal`. op is one of == != < <= > >=.
type comparison struct {
	path []string
	op   string
	lit  any
}

func (c comparison) Eval(payload map[string]any) bool {
	val, ok := LookupPath(payload, c.path)
	if !ok {
		// Missing field: != against anything is vacuously true would be
		// surprising for filters, so all comparisons fail.
		return false
	}
	switch c.op {
	case "==":
		return valuesEqual(val, c.lit)
	case "!=":
		return !valuesEqual(val, c.lit)
	}
	a, aok := toFloat(val)
	b, bok := toFloat(c.lit)
	if !aok || !bok {
		return false
	}
	switch c.op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

// truthy is a bare `path` term: true when the field exists and is true.
type truthy struct{ path []string }

func (t truthy) Eval(payload map[string]any) bool {
	val, ok := LookupPath(payload, t.path)
	if !ok {
		return false
	}
	b, ok := val.(bool)
	return ok && b
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

// toFloat coerces the numeric types JSON and YAML decoding produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ParsePredicate compiles a when-expression.
//
// Grammar (precedence low to high):
//
//	expr  := and ("||" and)*
//	and   := term ("&&" term)*
//	term  := "(" expr ")" | path op literal | path
//	op    := "==" | "!=" | "<" | "<=" | ">" | ">="
//	path  := ident ("." ident)*
//	literal := 'single quoted string' | number | true | false
//
// An empty expression returns a nil Predicate (match everything).
func ParsePredicate(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	p := &predParser{input: expr}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at offset %d: %q", p.pos, p.input[p.pos:])
	}
	return pred, nil
}

type predParser struct {
	input string
	pos   int
}

func (p *predParser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{left}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return orPredicate{terms: terms}, nil
}

func (p *predParser) parseAnd() (Predicate, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{left}
	for p.consume("&&") {
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return andPredicate{terms: terms}, nil
}

func (p *predParser) parseTerm() (Predicate, error) {
	p.skipSpace()
	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		return inner, nil
	}

	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	op, ok := p.parseOp()
	if !ok {
		return truthy{path: path}, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return comparison{path: path, op: op, lit: lit}, nil
}

func (p *predParser) parsePath() ([]string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return nil, fmt.Errorf("expected field path at offset %d", start)
	}
	raw := p.input[start:p.pos]
	for _, seg := range strings.Split(raw, ".") {
		if seg == "" {
			return nil, fmt.Errorf("malformed field path %q", raw)
		}
	}
	return strings.Split(raw, "."), nil
}

func (p *predParser) parseOp() (string, bool) {
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.consume(op) {
			return op, true
		}
	}
	return "", false
}

func (p *predParser) parseLiteral() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("expected literal at end of expression")
	}
	if p.input[p.pos] == '\'' {
		end := strings.IndexByte(p.input[p.pos+1:], '\'')
		if end < 0 {
			return nil, fmt.Errorf("unterminated string literal at offset %d", p.pos)
		}
		lit := p.input[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return lit, nil
	}
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == '-' || c == '+' {
			p.pos++
			continue
		}
		break
	}
	raw := p.input[start:p.pos]
	switch raw {
	case "":
		return nil, fmt.Errorf("expected literal at offset %d", start)
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("invalid literal %q at offset %d (strings take single quotes)", raw, start)
}

// consume advances past tok if it appears next (after whitespace).
func (p *predParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *predParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
