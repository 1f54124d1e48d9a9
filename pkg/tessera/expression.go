package tessera

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// exprNode is a node in the expression tree. Evaluation is pure with
// respect to the render state's context: expressions read scopes and the
// filter registry and never mutate either.
type exprNode interface {
	evaluate(st *renderState) (interface{}, error)
	String() string
}

// literalNode holds a string, number or boolean literal.
type literalNode struct {
	value interface{}
}

func (n *literalNode) String() string {
	if s, ok := n.value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", n.value)
}

func (n *literalNode) evaluate(st *renderState) (interface{}, error) {
	return n.value, nil
}

// accessor is one step in a variable path: a field name or a computed
// index expression.
type accessor struct {
	field string
	index exprNode
}

// varNode is a dotted/indexed context lookup, e.g. page.links[0].url.
// A missing path yields the undefined marker rather than an error;
// whether that becomes an UndefinedVariableError depends on where the
// value ends up.
type varNode struct {
	root string
	path []accessor
	raw  string
}

func (n *varNode) String() string {
	return n.raw
}

func (n *varNode) evaluate(st *renderState) (interface{}, error) {
	current, ok := st.lookup(n.root)
	if !ok {
		return undefinedValue{path: n.raw}, nil
	}
	for _, step := range n.path {
		if step.index != nil {
			idx, err := step.index.evaluate(st)
			if err != nil {
				return nil, err
			}
			current = accessIndex(current, idx)
		} else {
			current = accessField(current, step.field)
		}
		if current == nil {
			return undefinedValue{path: n.raw}, nil
		}
		if isUndefined(current) {
			return undefinedValue{path: n.raw}, nil
		}
	}
	return current, nil
}

// filterNode applies a named filter to its input value. Filters are
// skipped when the input is undefined, except for "default", which is
// the one filter defined on missing values.
type filterNode struct {
	input exprNode
	name  string
	args  map[string]exprNode
}

func (n *filterNode) String() string {
	return fmt.Sprintf("%s | %s", n.input.String(), n.name)
}

func (n *filterNode) evaluate(st *renderState) (interface{}, error) {
	value, err := n.input.evaluate(st)
	if err != nil {
		return nil, err
	}

	args, err := evaluateArgs(st, n.args)
	if err != nil {
		return nil, err
	}

	// An undefined input passes through every filter untouched except
	// default, which exists to replace it. The marker stays intact so
	// the consumer decides whether the access was guarded.
	if (isUndefined(value) || value == nil) && n.name != "default" {
		return value, nil
	}

	fn, ok := st.eng.filters.get(n.name)
	if !ok {
		return nil, NewFilterError(n.name, "unknown filter")
	}
	return fn(value, args)
}

// testNode implements "is defined" / "is undefined". It never errors on
// a missing path; that is the whole point of the construct.
type testNode struct {
	input   exprNode
	test    string
	negated bool
}

func (n *testNode) String() string {
	if n.negated {
		return fmt.Sprintf("%s is not %s", n.input.String(), n.test)
	}
	return fmt.Sprintf("%s is %s", n.input.String(), n.test)
}

func (n *testNode) evaluate(st *renderState) (interface{}, error) {
	value, err := n.input.evaluate(st)
	if err != nil {
		return nil, err
	}
	var result bool
	switch n.test {
	case "defined":
		result = !isUndefined(value)
	case "undefined":
		result = isUndefined(value)
	default:
		return nil, fmt.Errorf("unknown test %q", n.test)
	}
	if n.negated {
		result = !result
	}
	return result, nil
}

// binaryNode implements ==, !=, and, or. The boolean operators
// short-circuit and treat undefined as false.
type binaryNode struct {
	op    string
	left  exprNode
	right exprNode
}

func (n *binaryNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.left.String(), n.op, n.right.String())
}

func (n *binaryNode) evaluate(st *renderState) (interface{}, error) {
	left, err := n.left.evaluate(st)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "and":
		if !isTruthy(left) {
			return false, nil
		}
		right, err := n.right.evaluate(st)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	case "or":
		if isTruthy(left) {
			return true, nil
		}
		right, err := n.right.evaluate(st)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	}
	right, err := n.right.evaluate(st)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "==":
		return valuesEqual(left, right), nil
	case "!=":
		return !valuesEqual(left, right), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", n.op)
	}
}

// notNode negates truthiness.
type notNode struct {
	operand exprNode
}

func (n *notNode) String() string {
	return fmt.Sprintf("not %s", n.operand.String())
}

func (n *notNode) evaluate(st *renderState) (interface{}, error) {
	value, err := n.operand.evaluate(st)
	if err != nil {
		return nil, err
	}
	return !isTruthy(value), nil
}

// callNode invokes a macro with named arguments. The macro body renders
// in its own scope and the result comes back pre-escaped.
type callNode struct {
	name string
	args map[string]exprNode
}

func (n *callNode) String() string {
	return fmt.Sprintf("%s(...)", n.name)
}

func (n *callNode) evaluate(st *renderState) (interface{}, error) {
	args, err := evaluateArgs(st, n.args)
	if err != nil {
		return nil, err
	}
	return st.callMacro(n.name, args)
}

func evaluateArgs(st *renderState, args map[string]exprNode) (map[string]interface{}, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(args))
	for name, expr := range args {
		value, err := expr.evaluate(st)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

// accessField resolves a field name against map-like values.
func accessField(current interface{}, field string) interface{} {
	switch v := current.(type) {
	case Context:
		val, ok := v[field]
		if !ok {
			return undefinedValue{path: field}
		}
		return val
	case map[string]interface{}:
		val, ok := v[field]
		if !ok {
			return undefinedValue{path: field}
		}
		return val
	case map[string]string:
		val, ok := v[field]
		if !ok {
			return undefinedValue{path: field}
		}
		return val
	default:
		return undefinedValue{path: field}
	}
}

// accessIndex resolves bracket access: integer indexes on slices
// (negative counts from the end), string keys on maps.
func accessIndex(current interface{}, key interface{}) interface{} {
	if s, ok := key.(string); ok {
		return accessField(current, s)
	}
	idx, ok := toInt(key)
	if !ok {
		return undefinedValue{}
	}
	items, err := toSlice(current)
	if err != nil {
		return undefinedValue{}
	}
	if idx < 0 {
		idx = len(items) + idx
	}
	if idx < 0 || idx >= len(items) {
		return undefinedValue{}
	}
	return items[idx]
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// --- expression parsing ---

type exprToken struct {
	kind  exprTokenKind
	value string
}

type exprTokenKind int

const (
	exprIdent exprTokenKind = iota
	exprString
	exprNumber
	exprPunct
	exprEOF
)

type exprLexer struct {
	input  string
	pos    int
	tokens []exprToken
}

// lexExpression splits an expression string into tokens.
func lexExpression(input string) ([]exprToken, error) {
	l := &exprLexer{input: input}
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '"' || c == '\'':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case c >= '0' && c <= '9':
			l.lexNumber()
		case c == '-' && l.peek(1) >= '0' && l.peek(1) <= '9':
			l.pos++
			l.lexNumber()
			last := &l.tokens[len(l.tokens)-1]
			last.value = "-" + last.value
		case isIdentStart(rune(c)):
			l.lexIdent()
		case c == '=' && l.peek(1) == '=':
			l.emit(exprPunct, "==")
			l.pos += 2
		case c == '!' && l.peek(1) == '=':
			l.emit(exprPunct, "!=")
			l.pos += 2
		case strings.ContainsRune("|.[](),=", rune(c)):
			l.emit(exprPunct, string(c))
			l.pos++
		default:
			return nil, fmt.Errorf("unexpected character %q in expression", c)
		}
	}
	l.emit(exprEOF, "")
	return l.tokens, nil
}

func (l *exprLexer) peek(ahead int) byte {
	if l.pos+ahead < len(l.input) {
		return l.input[l.pos+ahead]
	}
	return 0
}

func (l *exprLexer) emit(kind exprTokenKind, value string) {
	l.tokens = append(l.tokens, exprToken{kind: kind, value: value})
}

func (l *exprLexer) lexString(quote byte) error {
	start := l.pos + 1
	i := start
	for i < len(l.input) && l.input[i] != quote {
		i++
	}
	if i >= len(l.input) {
		return fmt.Errorf("unterminated string literal")
	}
	l.emit(exprString, l.input[start:i])
	l.pos = i + 1
	return nil
}

func (l *exprLexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9' || l.input[l.pos] == '.') {
		l.pos++
	}
	l.emit(exprNumber, l.input[start:l.pos])
}

func (l *exprLexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && isIdentRune(rune(l.input[l.pos])) {
		l.pos++
	}
	l.emit(exprIdent, l.input[start:l.pos])
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// exprParser is a small recursive-descent parser. Precedence, loosest
// first: or, and, not, comparison/test, filter pipeline, primary.
type exprParser struct {
	tokens []exprToken
	pos    int
	raw    string
}

// parseExpression parses an expression string into a tree.
func parseExpression(input string) (exprNode, error) {
	tokens, err := lexExpression(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	p := &exprParser{tokens: tokens, raw: input}
	node, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	if p.current().kind != exprEOF {
		return nil, fmt.Errorf("%s: unexpected %q", input, p.current().value)
	}
	return node, nil
}

func (p *exprParser) current() exprToken {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return exprToken{kind: exprEOF}
}

func (p *exprParser) advance() exprToken {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *exprParser) acceptIdent(word string) bool {
	if p.current().kind == exprIdent && p.current().value == word {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) acceptPunct(punct string) bool {
	if p.current().kind == exprPunct && p.current().value == punct {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expectPunct(punct string) error {
	if !p.acceptPunct(punct) {
		return fmt.Errorf("expected %q, got %q", punct, p.current().value)
	}
	return nil
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (exprNode, error) {
	if p.acceptIdent("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (exprNode, error) {
	left, err := p.parseFiltered()
	if err != nil {
		return nil, err
	}

	if p.acceptIdent("is") {
		negated := p.acceptIdent("not")
		tok := p.advance()
		if tok.kind != exprIdent {
			return nil, fmt.Errorf("expected test name after \"is\"")
		}
		return &testNode{input: left, test: tok.value, negated: negated}, nil
	}

	for {
		var op string
		switch {
		case p.acceptPunct("=="):
			op = "=="
		case p.acceptPunct("!="):
			op = "!="
		default:
			return left, nil
		}
		right, err := p.parseFiltered()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseFiltered() (exprNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("|") {
		tok := p.advance()
		if tok.kind != exprIdent {
			return nil, fmt.Errorf("expected filter name after |")
		}
		filter := &filterNode{input: node, name: tok.value}
		if p.acceptPunct("(") {
			args, err := p.parseNamedArgs()
			if err != nil {
				return nil, err
			}
			filter.args = args
		}
		node = filter
	}
	return node, nil
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	tok := p.current()
	switch tok.kind {
	case exprString:
		p.advance()
		return &literalNode{value: tok.value}, nil
	case exprNumber:
		p.advance()
		if strings.Contains(tok.value, ".") {
			f, err := strconv.ParseFloat(tok.value, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number literal %q", tok.value)
			}
			return &literalNode{value: f}, nil
		}
		i, err := strconv.Atoi(tok.value)
		if err != nil {
			return nil, fmt.Errorf("bad number literal %q", tok.value)
		}
		return &literalNode{value: i}, nil
	case exprPunct:
		if tok.value == "(" {
			p.advance()
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	case exprIdent:
		switch tok.value {
		case "true":
			p.advance()
			return &literalNode{value: true}, nil
		case "false":
			p.advance()
			return &literalNode{value: false}, nil
		}
		return p.parseVariableOrCall()
	}
	return nil, fmt.Errorf("unexpected %q", tok.value)
}

func (p *exprParser) parseVariableOrCall() (exprNode, error) {
	name := p.advance().value

	// Call with named arguments.
	if p.acceptPunct("(") {
		args, err := p.parseNamedArgs()
		if err != nil {
			return nil, err
		}
		return &callNode{name: name, args: args}, nil
	}

	node := &varNode{root: name, raw: p.raw}
	var pathText strings.Builder
	pathText.WriteString(name)
	for {
		if p.acceptPunct(".") {
			tok := p.advance()
			if tok.kind != exprIdent {
				return nil, fmt.Errorf("expected field name after .")
			}
			node.path = append(node.path, accessor{field: tok.value})
			pathText.WriteString("." + tok.value)
			continue
		}
		if p.acceptPunct("[") {
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			node.path = append(node.path, accessor{index: idx})
			pathText.WriteString("[...]")
			continue
		}
		break
	}
	node.raw = pathText.String()
	return node, nil
}

func (p *exprParser) parseNamedArgs() (map[string]exprNode, error) {
	args := make(map[string]exprNode)
	if p.acceptPunct(")") {
		return args, nil
	}
	for {
		tok := p.advance()
		if tok.kind != exprIdent {
			return nil, fmt.Errorf("expected argument name, got %q", tok.value)
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args[tok.value] = value
		if p.acceptPunct(",") {
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}
