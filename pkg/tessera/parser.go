package tessera

import (
	"fmt"
	"strings"
)

// node is one element of a template's node sequence.
type node interface {
	render(st *renderState) error
}

// textNode is literal markup copied through untouched.
type textNode struct {
	text string
}

// outputNode is a {{ ... }} expression whose value is escaped (unless
// marked safe) and written to the output.
type outputNode struct {
	expr exprNode
	line int
}

// ifNode is an if/elif/else chain.
type ifNode struct {
	branches []ifBranch
	elseBody []node
	line     int
}

type ifBranch struct {
	condition exprNode
	body      []node
}

// forNode iterates a collection, exposing the item under loopVar and a
// position-aware "loop" variable inside the body.
type forNode struct {
	loopVar    string
	collection exprNode
	body       []node
	line       int
}

// blockNode is a named, overridable region.
type blockNode struct {
	name string
	body []node
	line int
}

// includeNode renders another template in place with the current
// context. A template with no directives (a stylesheet, say) passes
// through verbatim.
type includeNode struct {
	name string
	line int
}

// superNode splices the nearest ancestor's body of the enclosing block.
type superNode struct {
	line int
}

// macroNode declares a reusable fragment. Declarations render to
// nothing; invocation happens through call expressions.
type macroNode struct {
	name   string
	params []string
	body   []node
	line   int
}

// Template is an immutable parsed template: its node sequence, its own
// block and macro declarations, and the name of its parent when it
// extends one.
type Template struct {
	name   string
	parent string
	nodes  []node
	blocks map[string]*blockNode
	macros map[string]*macroNode
}

// Name returns the template's identifier.
func (t *Template) Name() string {
	return t.name
}

// Parent returns the extended template's name, or "" for a root.
func (t *Template) Parent() string {
	return t.parent
}

// parseTemplate parses template source into an immutable Template.
func parseTemplate(name, source string) (*Template, error) {
	tokens, err := tokenize(source)
	if err != nil {
		if te, ok := err.(*tokenizeError); ok {
			return nil, NewParseError(name, te.line, te.message)
		}
		return nil, NewParseError(name, 0, err.Error())
	}

	tpl := &Template{
		name:   name,
		blocks: make(map[string]*blockNode),
		macros: make(map[string]*macroNode),
	}
	p := &templateParser{name: name, tokens: tokens, tpl: tpl}
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, NewParseError(name, tok.line, fmt.Sprintf("unexpected {%% %s %%}", tok.value))
	}
	tpl.nodes = nodes
	return tpl, nil
}

type templateParser struct {
	name   string
	tokens []token
	pos    int
	tpl    *Template
	depth  int // nesting depth; extends is only legal at depth 0
}

func (p *templateParser) errorf(line int, format string, args ...interface{}) error {
	return NewParseError(p.name, line, fmt.Sprintf(format, args...))
}

// parseNodes consumes tokens until EOF or until a tag whose keyword is
// in stop. The stop tag is left unconsumed for the caller.
func (p *templateParser) parseNodes(stop []string) ([]node, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch tok.kind {
		case tokenText:
			if tok.value != "" {
				nodes = append(nodes, &textNode{text: tok.value})
			}
			p.pos++

		case tokenOutput:
			n, err := p.parseOutput(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
			p.pos++

		case tokenTag:
			keyword, rest := splitKeyword(tok.value)
			for _, s := range stop {
				if keyword == s {
					return nodes, nil
				}
			}
			n, err := p.parseTag(tok, keyword, rest)
			if err != nil {
				return nil, err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		}
	}
	if len(stop) > 0 {
		return nil, p.errorf(0, "missing {%% %s %%}", stop[len(stop)-1])
	}
	return nodes, nil
}

func splitKeyword(content string) (string, string) {
	content = strings.TrimSpace(content)
	if idx := strings.IndexAny(content, " \t\n"); idx != -1 {
		return content[:idx], strings.TrimSpace(content[idx:])
	}
	return content, ""
}

func (p *templateParser) parseOutput(tok token) (node, error) {
	expr, err := parseExpression(tok.value)
	if err != nil {
		return nil, p.errorf(tok.line, "%v", err)
	}
	// super() is positional, not a value: resolve it in the renderer
	// against the enclosing block.
	if call, ok := expr.(*callNode); ok && call.name == "super" {
		if len(call.args) != 0 {
			return nil, p.errorf(tok.line, "super() takes no arguments")
		}
		return &superNode{line: tok.line}, nil
	}
	return &outputNode{expr: expr, line: tok.line}, nil
}

func (p *templateParser) parseTag(tok token, keyword, rest string) (node, error) {
	p.pos++ // consume the opening tag

	switch keyword {
	case "extends":
		if p.depth > 0 {
			return nil, p.errorf(tok.line, "extends must appear at the top level")
		}
		if p.tpl.parent != "" {
			return nil, p.errorf(tok.line, "template declares more than one parent")
		}
		name, err := parseStringLiteral(rest)
		if err != nil {
			return nil, p.errorf(tok.line, "extends: %v", err)
		}
		p.tpl.parent = name
		return nil, nil

	case "block":
		return p.parseBlock(tok, rest)

	case "if":
		return p.parseIf(tok, rest)

	case "for":
		return p.parseFor(tok, rest)

	case "include":
		name, err := parseStringLiteral(rest)
		if err != nil {
			return nil, p.errorf(tok.line, "include: %v", err)
		}
		return &includeNode{name: name, line: tok.line}, nil

	case "macro":
		return p.parseMacro(tok, rest)

	default:
		return nil, p.errorf(tok.line, "unknown tag %q", keyword)
	}
}

func (p *templateParser) parseBlock(tok token, rest string) (node, error) {
	name := strings.TrimSpace(rest)
	if name == "" || strings.ContainsAny(name, " \t") {
		return nil, p.errorf(tok.line, "block requires a single name")
	}
	if _, exists := p.tpl.blocks[name]; exists {
		return nil, p.errorf(tok.line, "duplicate block %q", name)
	}
	// Reserve the name before descending so nested duplicates are caught.
	b := &blockNode{name: name, line: tok.line}
	p.tpl.blocks[name] = b

	p.depth++
	body, err := p.parseNodes([]string{"endblock"})
	p.depth--
	if err != nil {
		return nil, err
	}
	if err := p.consumeEnd("endblock", name); err != nil {
		return nil, err
	}
	b.body = body
	return b, nil
}

func (p *templateParser) parseIf(tok token, rest string) (node, error) {
	condition, err := parseExpression(rest)
	if err != nil {
		return nil, p.errorf(tok.line, "if: %v", err)
	}
	n := &ifNode{line: tok.line}

	p.depth++
	defer func() { p.depth-- }()

	body, err := p.parseNodes([]string{"elif", "else", "endif"})
	if err != nil {
		return nil, err
	}
	n.branches = append(n.branches, ifBranch{condition: condition, body: body})

	for {
		if p.pos >= len(p.tokens) {
			return nil, p.errorf(tok.line, "missing {%% endif %%}")
		}
		keyword, tagRest := splitKeyword(p.tokens[p.pos].value)
		switch keyword {
		case "elif":
			line := p.tokens[p.pos].line
			p.pos++
			cond, err := parseExpression(tagRest)
			if err != nil {
				return nil, p.errorf(line, "elif: %v", err)
			}
			body, err := p.parseNodes([]string{"elif", "else", "endif"})
			if err != nil {
				return nil, err
			}
			n.branches = append(n.branches, ifBranch{condition: cond, body: body})
		case "else":
			p.pos++
			body, err := p.parseNodes([]string{"endif"})
			if err != nil {
				return nil, err
			}
			n.elseBody = body
		case "endif":
			p.pos++
			return n, nil
		}
	}
}

func (p *templateParser) parseFor(tok token, rest string) (node, error) {
	idx := strings.Index(rest, " in ")
	if idx == -1 {
		return nil, p.errorf(tok.line, "for: missing \"in\" keyword")
	}
	loopVar := strings.TrimSpace(rest[:idx])
	if loopVar == "" || strings.ContainsAny(loopVar, " \t,") {
		return nil, p.errorf(tok.line, "for: a single loop variable is required")
	}
	collection, err := parseExpression(strings.TrimSpace(rest[idx+4:]))
	if err != nil {
		return nil, p.errorf(tok.line, "for: %v", err)
	}

	p.depth++
	body, err := p.parseNodes([]string{"endfor"})
	p.depth--
	if err != nil {
		return nil, err
	}
	if err := p.consumeEnd("endfor", ""); err != nil {
		return nil, err
	}
	return &forNode{loopVar: loopVar, collection: collection, body: body, line: tok.line}, nil
}

func (p *templateParser) parseMacro(tok token, rest string) (node, error) {
	open := strings.Index(rest, "(")
	closing := strings.LastIndex(rest, ")")
	if open == -1 || closing == -1 || closing < open {
		return nil, p.errorf(tok.line, "macro requires a parameter list: name(param, ...)")
	}
	name := strings.TrimSpace(rest[:open])
	if name == "" {
		return nil, p.errorf(tok.line, "macro requires a name")
	}
	if _, exists := p.tpl.macros[name]; exists {
		return nil, p.errorf(tok.line, "duplicate macro %q", name)
	}

	var params []string
	paramList := strings.TrimSpace(rest[open+1 : closing])
	if paramList != "" {
		for _, param := range strings.Split(paramList, ",") {
			param = strings.TrimSpace(param)
			if param == "" {
				return nil, p.errorf(tok.line, "macro %q: empty parameter", name)
			}
			params = append(params, param)
		}
	}

	p.depth++
	body, err := p.parseNodes([]string{"endmacro"})
	p.depth--
	if err != nil {
		return nil, err
	}
	if err := p.consumeEnd("endmacro", ""); err != nil {
		return nil, err
	}

	m := &macroNode{name: name, params: params, body: body, line: tok.line}
	p.tpl.macros[name] = m
	return m, nil
}

// consumeEnd consumes a closing tag, allowing an optional trailing name
// ({% endblock content %}).
func (p *templateParser) consumeEnd(keyword, name string) error {
	if p.pos >= len(p.tokens) {
		return p.errorf(0, "missing {%% %s %%}", keyword)
	}
	tok := p.tokens[p.pos]
	gotKeyword, rest := splitKeyword(tok.value)
	if gotKeyword != keyword {
		return p.errorf(tok.line, "expected {%% %s %%}, got {%% %s %%}", keyword, gotKeyword)
	}
	if rest != "" {
		if name == "" {
			return p.errorf(tok.line, "unexpected %q after %s", rest, keyword)
		}
		if rest != name {
			return p.errorf(tok.line, "mismatched %s: expected %q, got %q", keyword, name, rest)
		}
	}
	p.pos++
	return nil
}

// parseStringLiteral extracts a quoted template name from a tag body.
func parseStringLiteral(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", fmt.Errorf("expected a quoted template name")
	}
	quote := s[0]
	if (quote != '"' && quote != '\'') || s[len(s)-1] != quote {
		return "", fmt.Errorf("expected a quoted template name, got %s", s)
	}
	return s[1 : len(s)-1], nil
}
