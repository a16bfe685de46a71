// Package mapper loads SQL statement files.
//
// A statement file is an XML document whose <mapper namespace="...">
// root holds <sql>, <select>, <insert>, <update> and <delete> elements,
// each with an id. Element bodies are template text for the sqltpl
// engine: character data is kept as written (XML entities decoded),
// nested <if>, <for> and <include> tags pass through for the engine to
// interpret, and XML comments are dropped. A bare <include refid> is
// qualified with the statement's namespace, so fragments resolve within
// their own file unless the refid names another namespace explicitly.
package mapper

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/pluvio/dbx/closer"
)

// Kind is the element name a statement was declared with. KindSQL
// marks reusable fragments, the others mark executable statements.
type Kind string

const (
	KindSQL    Kind = "sql"
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

var statementKinds = map[string]Kind{
	"sql":    KindSQL,
	"select": KindSelect,
	"insert": KindInsert,
	"update": KindUpdate,
	"delete": KindDelete,
}

// Statement is one parsed mapper element.
type Statement struct {
	Namespace string
	ID        string
	Kind      Kind

	// Content is the statement body as sqltpl template text.
	Content string

	// UseGeneratedKeys and KeyColumn carry the insert's key metadata
	// through to callers that build RETURNING clauses.
	UseGeneratedKeys bool
	KeyColumn        string
}

// Name returns the namespace-qualified statement name, ns.id.
func (s Statement) Name() string {
	return s.Namespace + "." + s.ID
}

// Parse reads a single mapper document.
func Parse(r io.Reader) ([]Statement, error) {
	dec := xml.NewDecoder(r)
	var (
		stmts []Statement
		ns    string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mapper: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case ns == "" && start.Name.Local == "mapper":
			ns = attrOf(start, "namespace")
			if ns == "" {
				return nil, errors.New("mapper: the mapper element requires a namespace attribute")
			}
		case ns == "":
			return nil, fmt.Errorf("mapper: root element must be <mapper>, not <%s>", start.Name.Local)
		default:
			st, err := parseStatement(dec, ns, start)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, st)
		}
	}
	if ns == "" {
		return nil, errors.New("mapper: no mapper element found")
	}
	return stmts, nil
}

// ParseFile reads one mapper document from fsys.
func ParseFile(fsys fs.FS, path string) (stmts []Statement, err error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer closer.ErrorHandler(f, &err)

	stmts, err = Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stmts, nil
}

func parseStatement(dec *xml.Decoder, ns string, start xml.StartElement) (Statement, error) {
	kind, ok := statementKinds[start.Name.Local]
	if !ok {
		return Statement{}, fmt.Errorf("mapper %s: unsupported element <%s>", ns, start.Name.Local)
	}
	st := Statement{
		Namespace: ns,
		ID:        attrOf(start, "id"),
		Kind:      kind,
	}
	if st.ID == "" {
		return Statement{}, fmt.Errorf("mapper %s: <%s> requires an id attribute", ns, start.Name.Local)
	}
	if kind == KindInsert {
		st.UseGeneratedKeys = attrOf(start, "useGeneratedKeys") == "true"
		st.KeyColumn = attrOf(start, "keyColumn")
	}

	content, err := innerText(dec, ns, start.Name)
	if err != nil {
		return Statement{}, fmt.Errorf("mapper %s.%s: %w", ns, st.ID, err)
	}
	st.Content = strings.TrimSpace(content)
	return st, nil
}

// innerText reassembles a statement body as template text, consuming
// tokens up to and including the element's closing tag.
func innerText(dec *xml.Decoder, ns string, open xml.Name) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("unterminated <%s>: %w", open.Local, err)
		}
		switch tok := tok.(type) {
		case xml.CharData:
			sb.Write(tok)

		case xml.StartElement:
			switch tok.Name.Local {
			case "include":
				refid := attrOf(tok, "refid")
				if refid == "" {
					return "", errors.New("<include> requires a refid attribute")
				}
				if !strings.Contains(refid, ".") {
					refid = ns + "." + refid
				}
				sb.WriteString(`<include refid="` + refid + `"/>`)
				if err := dec.Skip(); err != nil {
					return "", fmt.Errorf("malformed <include>: %w", err)
				}
			case "if", "for":
				depth++
				writeTag(&sb, tok)
			default:
				return "", fmt.Errorf("unsupported tag <%s> in a statement body", tok.Name.Local)
			}

		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
			sb.WriteString("</" + tok.Name.Local + ">")
		}
	}
}

// writeTag re-emits a directive tag for the template engine, attributes
// in document order.
func writeTag(sb *strings.Builder, el xml.StartElement) {
	sb.WriteByte('<')
	sb.WriteString(el.Name.Local)
	for _, a := range el.Attr {
		sb.WriteByte(' ')
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		sb.WriteString(a.Value)
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
}

func attrOf(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
