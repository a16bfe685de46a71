package mapper

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pluvio/dbx/sqltpl"
)

// Set is an immutable collection of statements keyed by namespace and
// id, usually built once at startup with Load.
type Set struct {
	statements map[string]map[string]Statement
}

// Load walks root inside fsys and parses every *.xml file found. A
// statement id declared twice in one namespace, in the same file or
// across files, is an error.
func Load(fsys fs.FS, root string) (*Set, error) {
	s := &Set{statements: map[string]map[string]Statement{}}
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".xml") {
			return nil
		}
		stmts, err := ParseFile(fsys, path)
		if err != nil {
			return err
		}
		for _, st := range stmts {
			if err := s.add(st); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) add(st Statement) error {
	byID := s.statements[st.Namespace]
	if byID == nil {
		byID = map[string]Statement{}
		s.statements[st.Namespace] = byID
	}
	if _, ok := byID[st.ID]; ok {
		return fmt.Errorf("duplicate statement id %q in namespace %q", st.ID, st.Namespace)
	}
	byID[st.ID] = st
	return nil
}

// Statement looks up one statement.
func (s *Set) Statement(ns, id string) (Statement, bool) {
	st, ok := s.statements[ns][id]
	return st, ok
}

// MustContent returns the statement's template text, panicking if the
// statement does not exist. Intended for statements the program cannot
// run without.
func (s *Set) MustContent(ns, id string) string {
	st, ok := s.Statement(ns, id)
	if !ok {
		panic(fmt.Sprintf("mapper: no statement %s.%s", ns, id))
	}
	return st.Content
}

// Len returns the number of loaded statements, fragments included.
func (s *Set) Len() int {
	n := 0
	for _, byID := range s.statements {
		n += len(byID)
	}
	return n
}

// Namespaces returns the loaded namespaces, sorted.
func (s *Set) Namespaces() []string {
	out := make([]string, 0, len(s.statements))
	for ns := range s.statements {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Register parses every statement into the process-wide template
// engine. See RegisterTo.
func (s *Set) Register(cacheName func(ns, id string) string) error {
	return s.RegisterTo(sqltpl.Default, cacheName)
}

// RegisterTo parses every statement body into eng, which both validates
// the templates ahead of first use and makes fragments resolvable by
// <include refid>. Bodies are cached under their qualified ns.id name
// and additionally under cacheName(ns, id) when that differs; pass nil
// to keep only the qualified form.
func (s *Set) RegisterTo(eng *sqltpl.Engine, cacheName func(ns, id string) string) error {
	for _, byID := range s.statements {
		for _, st := range byID {
			if err := eng.Register(st.Name(), st.Content); err != nil {
				return err
			}
			if cacheName == nil {
				continue
			}
			if name := cacheName(st.Namespace, st.ID); name != st.Name() {
				if err := eng.Register(name, st.Content); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
