// Package sqltpl renders parameterized SQL from templates.
//
// A template is SQL text carrying variable markers (#{path} and {path}
// are equivalent) and three directives: <if test="...">, <for item=""
// collection="" open="" sep="" close=""> and <include refid=""/>.
// Rendering against a parameter tree produces SQL with one `?`
// placeholder per marker plus the matching ordered parameter list.
// Engine-specific placeholder forms are applied later, at execution time.
//
// Parsed templates are cached by name and reparsed only when the content
// registered under that name changes.
package sqltpl

import (
	"sync"
	"sync/atomic"

	"github.com/pluvio/dbx/value"
)

// Param is the bound-parameter type produced by rendering.
type Param = value.Param

type entry struct {
	content string
	nodes   []node
}

// Engine parses, caches and renders templates. Use NewEngine; the
// package-level functions operate on a process-wide Default engine.
type Engine struct {
	mu      sync.RWMutex
	entries map[string]*entry
	parses  atomic.Int64
}

func NewEngine() *Engine {
	return &Engine{entries: map[string]*entry{}}
}

// Default is the process-wide engine backing the package-level functions.
var Default = NewEngine()

// Render renders the template cached under name against param, parsing
// content first if the name is new or its cached content differs. It
// returns the placeholder SQL and the ordered parameters.
func Render(name, content string, param value.Value) (string, []Param, error) {
	return Default.Render(name, content, param)
}

// Register parses and caches content under name without rendering it,
// which makes the name available to <include refid>.
func Register(name, content string) error {
	return Default.Register(name, content)
}

// Remove drops the named template from the cache. Removing an unknown
// name is a no-op.
func Remove(name string) {
	Default.Remove(name)
}

func (e *Engine) Render(name, content string, param value.Value) (string, []Param, error) {
	ent, err := e.lookupOrParse(name, content)
	if err != nil {
		return "", nil, err
	}
	r := &renderer{eng: e}
	if err := r.walk(name, ent.nodes, &scope{root: param}); err != nil {
		return "", nil, err
	}
	return r.sb.String(), r.params, nil
}

func (e *Engine) Register(name, content string) error {
	_, err := e.lookupOrParse(name, content)
	return err
}

func (e *Engine) Remove(name string) {
	e.mu.Lock()
	delete(e.entries, name)
	e.mu.Unlock()
}

// Parses reports how many times this engine has parsed template content.
// Diagnostic only: cache hits do not parse.
func (e *Engine) Parses() int64 {
	return e.parses.Load()
}

func (e *Engine) entry(name string) *entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.entries[name]
}

func (e *Engine) lookupOrParse(name, content string) (*entry, error) {
	e.mu.RLock()
	ent := e.entries[name]
	e.mu.RUnlock()
	if ent != nil && ent.content == content {
		return ent, nil
	}

	nodes, err := parse(name, content)
	if err != nil {
		return nil, err
	}
	e.parses.Add(1)

	e.mu.Lock()
	defer e.mu.Unlock()
	if cur := e.entries[name]; cur != nil && cur.content == content {
		// lost a race to an identical parse, adopt the winner
		return cur, nil
	}
	ent = &entry{content: content, nodes: nodes}
	e.entries[name] = ent
	return ent, nil
}
