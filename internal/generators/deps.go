package generators

// Dependencies lists, in first-seen order and without duplicates, the
// identifiers whose values g reads while generating.
func Dependencies(g Generator) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	var walk func(g Generator)
	walk = func(g Generator) {
		switch g := g.(type) {
		case *Identifier:
			add(g.ID)
		case *Join:
			for _, part := range g.Parts {
				walk(part)
			}
		case *Alternation:
			for _, c := range g.gens {
				walk(c)
			}
		case *Nested:
			// Every level above Depth is read to pick the branch.
			for _, id := range g.Tree.ids[:g.Depth] {
				add(id)
			}
			for _, node := range g.Tree.assignNodesAt(g.Depth) {
				walk(node.Gen)
			}
		}
	}
	walk(g)
	return out
}
