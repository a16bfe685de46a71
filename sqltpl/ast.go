package sqltpl

import (
	"strings"

	"github.com/pluvio/dbx/value"
)

type node interface {
	isNode()
}

// textNode is a literal run of SQL text.
type textNode string

// varNode is a variable marker, #{path} or {path}. Rendering emits one
// placeholder and appends one bound parameter.
type varNode struct {
	path string
}

// includeNode splices another registered template at this position.
type includeNode struct {
	refid string
}

type ifNode struct {
	test testExpr
	body []node
}

type forNode struct {
	item       string
	collection string
	open       string
	sep        string
	close      string
	body       []node
}

func (textNode) isNode()    {}
func (varNode) isNode()     {}
func (includeNode) isNode() {}
func (ifNode) isNode()      {}
func (forNode) isNode()     {}

type testOp int

const (
	opTruthy testOp = iota
	opIsNull
	opNotNull
	opEqLit
	opNeqLit
)

// testExpr is a parsed <if test="..."> expression.
type testExpr struct {
	path string
	op   testOp
	lit  string
}

func (t testExpr) eval(sc *scope) bool {
	v := sc.lookup(t.path)
	switch t.op {
	case opIsNull:
		return v.IsNull()
	case opNotNull:
		return !v.IsNull()
	case opEqLit:
		return !v.IsNull() && v.String() == t.lit
	case opNeqLit:
		return v.IsNull() || v.String() != t.lit
	}
	return v.Truthy()
}

// scope resolves dotted paths against the root parameter, with a stack of
// loop-local bindings looked up innermost first.
type scope struct {
	root   value.Value
	locals []local
}

type local struct {
	name string
	v    value.Value
}

func (sc *scope) push(name string, v value.Value) {
	sc.locals = append(sc.locals, local{name: name, v: v})
}

func (sc *scope) pop() {
	sc.locals = sc.locals[:len(sc.locals)-1]
}

// lookup resolves a dotted path. A missing binding or a path step through
// a non-map resolves to Null rather than an error, so templates can test
// for absent parameters.
func (sc *scope) lookup(path string) value.Value {
	head := path
	rest := ""
	if i := strings.IndexByte(path, '.'); i >= 0 {
		head, rest = path[:i], path[i+1:]
	}

	for i := len(sc.locals) - 1; i >= 0; i-- {
		if sc.locals[i].name == head {
			return descend(sc.locals[i].v, rest)
		}
	}
	if v, ok := sc.root.Get(head); ok {
		return descend(v, rest)
	}
	return value.Null()
}

func descend(v value.Value, path string) value.Value {
	for path != "" {
		seg := path
		if i := strings.IndexByte(path, '.'); i >= 0 {
			seg, path = path[:i], path[i+1:]
		} else {
			path = ""
		}
		sub, ok := v.Get(seg)
		if !ok {
			return value.Null()
		}
		v = sub
	}
	return v
}
