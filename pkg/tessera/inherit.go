package tessera

// blockDecl is one template's declaration of a named block, tagged with
// its owner so error messages can point at the right file.
type blockDecl struct {
	owner string
	block *blockNode
}

// resolvedTemplate is a template with its inheritance flattened: the
// chain from most-derived to root, the per-block override stacks, and
// the merged macro table.
type resolvedTemplate struct {
	name string

	// chain is ordered most-derived first; the root is last and its
	// node sequence drives rendering.
	chain []*Template

	// blocks maps a block name to its declarations, most-derived
	// first. Rendering uses index 0; super() steps down the stack.
	blocks map[string][]blockDecl

	// macros merges declarations across the chain, most-derived wins.
	macros map[string]*macroNode
}

func (r *resolvedTemplate) root() *Template {
	return r.chain[len(r.chain)-1]
}

// resolveInheritance walks the extends chain of tpl, loading parents
// through parse, and flattens blocks and macros. A template extending
// itself, directly or through intermediaries, is rejected. A non-root
// template overriding a block no ancestor declares is rejected.
func resolveInheritance(tpl *Template, parse func(name string) (*Template, error)) (*resolvedTemplate, error) {
	res := &resolvedTemplate{
		name:   tpl.name,
		blocks: make(map[string][]blockDecl),
		macros: make(map[string]*macroNode),
	}

	visited := map[string]bool{tpl.name: true}
	chainNames := []string{tpl.name}

	current := tpl
	for {
		res.chain = append(res.chain, current)
		for name, b := range current.blocks {
			res.blocks[name] = append(res.blocks[name], blockDecl{owner: current.name, block: b})
		}
		for name, m := range current.macros {
			if _, exists := res.macros[name]; !exists {
				res.macros[name] = m
			}
		}

		if current.parent == "" {
			break
		}
		if visited[current.parent] {
			return nil, NewCyclicInheritanceError(append(chainNames, current.parent))
		}
		visited[current.parent] = true
		chainNames = append(chainNames, current.parent)

		parent, err := parse(current.parent)
		if err != nil {
			return nil, err
		}
		current = parent
	}

	if err := res.checkBlocks(); err != nil {
		return nil, err
	}
	return res, nil
}

// checkBlocks rejects blocks that a derived template declares but no
// template above it in the chain does. The root may declare anything;
// its blocks are the extension points.
func (r *resolvedTemplate) checkBlocks() error {
	for i, tpl := range r.chain[:len(r.chain)-1] {
		for name, b := range tpl.blocks {
			declared := false
			for _, ancestor := range r.chain[i+1:] {
				if _, ok := ancestor.blocks[name]; ok {
					declared = true
					break
				}
			}
			if !declared {
				return NewUnresolvedBlockError(tpl.name, name, b.line)
			}
		}
	}
	return nil
}

// ancestorBlock returns the declaration of name below depth in the
// override stack, for super() resolution.
func (r *resolvedTemplate) ancestorBlock(name string, depth int) (blockDecl, bool) {
	stack := r.blocks[name]
	if depth+1 >= len(stack) {
		return blockDecl{}, false
	}
	return stack[depth+1], true
}
