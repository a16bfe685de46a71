package sqltpl

import (
	"fmt"
	"strings"
)

// maxIncludeDepth bounds include recursion so a refid cycle fails instead
// of blowing the stack.
const maxIncludeDepth = 64

type renderer struct {
	eng    *Engine
	sb     strings.Builder
	params []Param
	depth  int
}

func (r *renderer) walk(tplName string, nodes []node, sc *scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			r.sb.WriteString(string(n))

		case varNode:
			v := sc.lookup(n.path)
			p, err := v.Param()
			if err != nil {
				return fmt.Errorf("template %s: marker %q: %w (use <for> to expand collections)", tplName, n.path, err)
			}
			r.sb.WriteByte('?')
			r.params = append(r.params, p)

		case includeNode:
			r.depth++
			if r.depth > maxIncludeDepth {
				return &ResolveError{Template: tplName, RefID: n.refid, Reason: "include depth exceeded, likely a refid cycle"}
			}
			ent := r.eng.entry(n.refid)
			if ent == nil {
				return &ResolveError{Template: tplName, RefID: n.refid}
			}
			if err := r.walk(n.refid, ent.nodes, sc); err != nil {
				return err
			}
			r.depth--

		case ifNode:
			if n.test.eval(sc) {
				if err := r.walk(tplName, n.body, sc); err != nil {
					return err
				}
			}

		case forNode:
			coll := sc.lookup(n.collection)
			elems := coll.Elems()
			if len(elems) == 0 {
				continue
			}
			r.sb.WriteString(n.open)
			for i, el := range elems {
				if i > 0 {
					r.sb.WriteString(n.sep)
				}
				sc.push(n.item, el)
				err := r.walk(tplName, n.body, sc)
				sc.pop()
				if err != nil {
					return err
				}
			}
			r.sb.WriteString(n.close)
		}
	}
	return nil
}
