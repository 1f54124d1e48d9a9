package tessera

import (
	"fmt"
	"io"
	"strings"
)

// blockFrame tracks the block currently being rendered and how deep in
// its override stack we are, so that super() knows where to resume.
type blockFrame struct {
	name  string
	depth int
}

// renderState carries everything a render pass needs: the engine, the
// destination, the variable scopes, and the resolved template whose
// root drives the walk.
type renderState struct {
	eng          *Engine
	out          io.Writer
	res          *resolvedTemplate
	scopes       []map[string]interface{}
	blockStack   []blockFrame
	includeDepth int
}

func newRenderState(eng *Engine, out io.Writer, res *resolvedTemplate, ctx Context) *renderState {
	globals := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		globals[k] = v
	}
	return &renderState{
		eng:    eng,
		out:    out,
		res:    res,
		scopes: []map[string]interface{}{globals},
	}
}

func (st *renderState) write(s string) error {
	_, err := io.WriteString(st.out, s)
	return err
}

// lookup resolves a name against the scope stack, innermost first.
func (st *renderState) lookup(name string) (interface{}, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v, ok := st.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (st *renderState) pushScope(vars map[string]interface{}) {
	st.scopes = append(st.scopes, vars)
}

func (st *renderState) popScope() {
	st.scopes = st.scopes[:len(st.scopes)-1]
}

func (st *renderState) renderNodes(nodes []node) error {
	for _, n := range nodes {
		if err := n.render(st); err != nil {
			return err
		}
	}
	return nil
}

// callMacro renders the named macro in an isolated scope holding only
// its bound parameters and returns the output as safe markup.
func (st *renderState) callMacro(name string, args map[string]interface{}) (interface{}, error) {
	m, ok := st.res.macros[name]
	if !ok {
		return nil, fmt.Errorf("template %s: unknown macro %q", st.res.name, name)
	}
	scope := make(map[string]interface{}, len(m.params)+1)
	// Site configuration is visible everywhere, macros included; the
	// rest of the caller's context is not.
	if config, ok := st.lookup("config"); ok {
		scope["config"] = config
	}
	for _, param := range m.params {
		if v, ok := args[param]; ok {
			scope[param] = v
		} else {
			scope[param] = undefinedValue{path: param}
		}
	}

	var sb strings.Builder
	inner := &renderState{
		eng:          st.eng,
		out:          &sb,
		res:          st.res,
		scopes:       []map[string]interface{}{scope},
		includeDepth: st.includeDepth,
	}
	if err := inner.renderNodes(m.body); err != nil {
		return nil, err
	}
	return Safe(sb.String()), nil
}

func (n *textNode) render(st *renderState) error {
	return st.write(n.text)
}

func (n *outputNode) render(st *renderState) error {
	value, err := n.expr.evaluate(st)
	if err != nil {
		return err
	}
	if uv, ok := value.(undefinedValue); ok {
		if st.eng.config.StrictUndefined {
			return NewUndefinedVariableError(st.res.name, uv.path, n.line)
		}
		return nil
	}
	if safe, ok := value.(Safe); ok {
		return st.write(string(safe))
	}
	return st.write(escapeHTML(FormatValue(value)))
}

func (n *ifNode) render(st *renderState) error {
	for _, branch := range n.branches {
		value, err := branch.condition.evaluate(st)
		if err != nil {
			return err
		}
		if isTruthy(value) {
			return st.renderNodes(branch.body)
		}
	}
	return st.renderNodes(n.elseBody)
}

func (n *forNode) render(st *renderState) error {
	value, err := n.collection.evaluate(st)
	if err != nil {
		return err
	}
	items, err := toSlice(value)
	if err != nil {
		return fmt.Errorf("template %s:%d: cannot iterate %q: %w", st.res.name, n.line, n.collection.String(), err)
	}
	length := len(items)
	for i, item := range items {
		st.pushScope(map[string]interface{}{
			n.loopVar: item,
			"loop": map[string]interface{}{
				"index":  i + 1,
				"index0": i,
				"first":  i == 0,
				"last":   i == length-1,
				"length": length,
			},
		})
		err := st.renderNodes(n.body)
		st.popScope()
		if err != nil {
			return err
		}
	}
	return nil
}

// render for a block uses the most derived declaration of its name,
// which may live in a template far below the one that declared this
// node.
func (n *blockNode) render(st *renderState) error {
	decls := st.res.blocks[n.name]
	if len(decls) == 0 {
		// Unreachable after resolution, but a stale node should not
		// render silently.
		return NewUnresolvedBlockError(st.res.name, n.name, n.line)
	}
	st.blockStack = append(st.blockStack, blockFrame{name: n.name, depth: 0})
	err := st.renderNodes(decls[0].block.body)
	st.blockStack = st.blockStack[:len(st.blockStack)-1]
	return err
}

func (n *superNode) render(st *renderState) error {
	if len(st.blockStack) == 0 {
		return NewParseError(st.res.name, n.line, "super() outside a block")
	}
	frame := &st.blockStack[len(st.blockStack)-1]
	decl, ok := st.res.ancestorBlock(frame.name, frame.depth)
	if !ok {
		return NewParseError(st.res.name, n.line,
			fmt.Sprintf("block %q has no parent body for super()", frame.name))
	}
	frame.depth++
	err := st.renderNodes(decl.block.body)
	frame.depth--
	return err
}

func (n *includeNode) render(st *renderState) error {
	if st.includeDepth >= st.eng.config.MaxIncludeDepth {
		return fmt.Errorf("template %s: include depth exceeds %d at %q",
			st.res.name, st.eng.config.MaxIncludeDepth, n.name)
	}
	res, err := st.eng.set.resolve(n.name)
	if err != nil {
		return err
	}
	prev := st.res
	st.res = res
	st.includeDepth++
	err = st.renderNodes(res.root().nodes)
	st.includeDepth--
	st.res = prev
	return err
}

func (n *macroNode) render(st *renderState) error {
	// Declarations produce no output.
	return nil
}
